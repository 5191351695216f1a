// Package eventlog is an append-only trail of attempt lifecycle events,
// usable for audit and for downstream sync. Appends are best-effort: the
// caller logs failures and moves on.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeAttemptStarted   = "AttemptStarted"
	TypeAttemptExpired   = "AttemptExpired"
	TypeAttemptSubmitted = "AttemptSubmitted"
	TypeAttemptGraded    = "AttemptGraded"
	TypeRemedialAssigned = "RemedialAssigned"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: attempt or assignment id
	DataJSON  string
	CreatedAt int64
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	return err
}

// Tail returns the most recent events, newest first.
func (r *Repo) Tail(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", typ, key, data, created_at FROM event_log ORDER BY "offset" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
