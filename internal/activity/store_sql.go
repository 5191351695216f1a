package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/studylane/assessment-engine/internal/errs"
)

// SQLStore keeps one row per activity with the ordered question list in a
// JSON column. Questions are immutable once READY, so there is no per-row
// question table to keep in sync.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, a Activity) error {
	var status Status
	err := s.db.QueryRowContext(ctx, `SELECT status FROM activities WHERE id=$1`, a.ID).Scan(&status)
	switch {
	case err == nil:
		if status == StatusReady {
			return errs.Validationf("activity %s is published and immutable", a.ID)
		}
	case errors.Is(err, sql.ErrNoRows):
		// fresh insert below
	default:
		return err
	}

	qj, err := json.Marshal(a.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO activities
		(id,course_id,title,topic,activity_type,status,weight_multiplier,time_limit_sec,deadline,assigned_week,published_at,created_at,questions_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			course_id=EXCLUDED.course_id, title=EXCLUDED.title, topic=EXCLUDED.topic,
			activity_type=EXCLUDED.activity_type, weight_multiplier=EXCLUDED.weight_multiplier,
			time_limit_sec=EXCLUDED.time_limit_sec, deadline=EXCLUDED.deadline,
			assigned_week=EXCLUDED.assigned_week, questions_json=EXCLUDED.questions_json`,
		a.ID, a.CourseID, a.Title, a.Topic, string(a.Type), string(a.Status),
		a.WeightMultiplier, a.TimeLimitSec, a.Deadline, a.AssignedWeek,
		a.PublishedAt, a.CreatedAt, string(qj))
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+activityCols+` FROM activities WHERE id=$1`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, errs.NotFound("activity", id)
	}
	return a, err
}

func (s *SQLStore) Publish(ctx context.Context, id string, publishedAt int64) (Activity, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if err := CanPublish(a); err != nil {
		return Activity{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE activities SET status=$1, published_at=$2 WHERE id=$3 AND status=$4`,
		string(StatusReady), publishedAt, id, string(StatusDraft))
	if err != nil {
		return Activity{}, err
	}
	a.Status = StatusReady
	a.PublishedAt = publishedAt
	return a, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Activity, error) {
	where := []string{}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.CourseID != "" {
		add("course_id=$%d", opts.CourseID)
	}
	if opts.Topic != "" {
		add("topic=$%d", opts.Topic)
	}
	if opts.Type != "" {
		add("activity_type=$%d", string(opts.Type))
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	q := `SELECT ` + activityCols + ` FROM activities`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY assigned_week DESC, id DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const activityCols = `id,course_id,title,topic,activity_type,status,weight_multiplier,time_limit_sec,deadline,assigned_week,published_at,created_at,questions_json`

type rowScanner interface{ Scan(dest ...any) error }

func scanActivity(row rowScanner) (Activity, error) {
	var a Activity
	var typ, status, qjson string
	if err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.Topic, &typ, &status,
		&a.WeightMultiplier, &a.TimeLimitSec, &a.Deadline, &a.AssignedWeek,
		&a.PublishedAt, &a.CreatedAt, &qjson); err != nil {
		return Activity{}, err
	}
	a.Type = Type(typ)
	a.Status = Status(status)
	if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
		return Activity{}, err
	}
	return a, nil
}
