package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/studylane/assessment-engine/internal/errs"
)

// SQLStore keeps one row per attempt and one row per answer record.
// Uniqueness of (activity_id, student_id, attempt_number) and of
// (attempt_id, question_id) is enforced by the schema; Create translates
// violations into errs.ConflictError.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, a Attempt) error {
	// Guarded read-then-insert: the active check narrows the race window,
	// the unique constraint closes it.
	active, err := s.Active(ctx, a.ActivityID, a.StudentID)
	if err != nil {
		return err
	}
	if active != nil {
		return errs.Conflict("attempt already in progress for student " + a.StudentID)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,activity_id,student_id,attempt_number,status,started_at,submitted_at,score,max_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ActivityID, a.StudentID, a.Number, string(a.Status),
		a.StartedAt, a.SubmittedAt, a.Score, a.MaxScore)
	if isUniqueViolation(err) {
		return errs.Conflict("duplicate attempt number")
	}
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, errs.NotFound("attempt", id)
	}
	if err != nil {
		return Attempt{}, err
	}
	a.Answers, err = s.loadAnswers(ctx, id)
	return a, err
}

func (s *SQLStore) Active(ctx context.Context, activityID, studentID string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE activity_id=$1 AND student_id=$2 AND status=$3`,
		activityID, studentID, string(StatusInProgress))
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Answers, err = s.loadAnswers(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLStore) MaxNumber(ctx context.Context, activityID, studentID string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(attempt_number) FROM attempts WHERE activity_id=$1 AND student_id=$2`,
		activityID, studentID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

func (s *SQLStore) Save(ctx context.Context, a Attempt, from Status) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	// Compare-and-swap on the prior status: a writer whose read went stale
	// matches zero rows instead of clobbering a committed transition.
	res, err := tx.ExecContext(ctx, `UPDATE attempts
		SET status=$1, submitted_at=$2, score=$3, max_score=$4 WHERE id=$5 AND status=$6`,
		string(a.Status), a.SubmittedAt, a.Score, a.MaxScore, a.ID, string(from))
	if err != nil {
		return Attempt{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var cur string
		serr := tx.QueryRowContext(ctx, `SELECT status FROM attempts WHERE id=$1`, a.ID).Scan(&cur)
		if errors.Is(serr, sql.ErrNoRows) {
			return Attempt{}, errs.NotFound("attempt", a.ID)
		}
		if serr != nil {
			return Attempt{}, serr
		}
		return Attempt{}, errs.Conflict("attempt " + a.ID + " is " + cur + ", not " + string(from))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attempt_answers WHERE attempt_id=$1`, a.ID); err != nil {
		return Attempt{}, err
	}
	for _, ans := range a.Answers {
		var correct, points sql.NullInt64
		if ans.IsCorrect != nil {
			correct = sql.NullInt64{Int64: boolToInt(*ans.IsCorrect), Valid: true}
		}
		if ans.PointsAwarded != nil {
			points = sql.NullInt64{Int64: int64(*ans.PointsAwarded), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempt_answers
			(attempt_id,question_id,selected_option,text_answer,is_correct,points_awarded,feedback,graded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			a.ID, ans.QuestionID, ans.SelectedOption, ans.TextAnswer,
			correct, points, ans.Feedback, ans.GradedAt); err != nil {
			return Attempt{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	where := []string{}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.ActivityID != "" {
		add("activity_id=$%d", opts.ActivityID)
	}
	if opts.StudentID != "" {
		add("student_id=$%d", opts.StudentID)
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	q := `SELECT ` + attemptCols + ` FROM attempts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	switch opts.Sort {
	case "submitted_at":
		q += " ORDER BY submitted_at DESC, id DESC"
	default:
		q += " ORDER BY started_at DESC, id DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
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
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) loadAnswers(ctx context.Context, attemptID string) ([]AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		question_id,selected_option,text_answer,is_correct,points_awarded,feedback,graded_at
		FROM attempt_answers WHERE attempt_id=$1 ORDER BY seq`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AnswerRecord
	for rows.Next() {
		var ans AnswerRecord
		var correct, points sql.NullInt64
		if err := rows.Scan(&ans.QuestionID, &ans.SelectedOption, &ans.TextAnswer,
			&correct, &points, &ans.Feedback, &ans.GradedAt); err != nil {
			return nil, err
		}
		if correct.Valid {
			v := correct.Int64 != 0
			ans.IsCorrect = &v
		}
		if points.Valid {
			v := int(points.Int64)
			ans.PointsAwarded = &v
		}
		out = append(out, ans)
	}
	return out, rows.Err()
}

const attemptCols = `id,activity_id,student_id,attempt_number,status,started_at,submitted_at,score,max_score`

type rowScanner interface{ Scan(dest ...any) error }

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var status string
	if err := row.Scan(&a.ID, &a.ActivityID, &a.StudentID, &a.Number, &status,
		&a.StartedAt, &a.SubmittedAt, &a.Score, &a.MaxScore); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	return a, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
