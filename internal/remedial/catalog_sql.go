package remedial

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/errs"
)

// SQLCatalog reads candidates from the activities table and owns the
// remedial_assignments table.
type SQLCatalog struct {
	db *sql.DB
}

func NewSQLCatalog(db *sql.DB) *SQLCatalog { return &SQLCatalog{db: db} }

func (c *SQLCatalog) Candidates(ctx context.Context, courseID, topic string, maxWeek int) ([]activity.Activity, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT
		id,course_id,title,topic,activity_type,status,weight_multiplier,time_limit_sec,deadline,assigned_week,published_at,created_at,questions_json
		FROM activities
		WHERE course_id=$1 AND topic=$2 AND activity_type=$3 AND status=$4 AND assigned_week<=$5
		ORDER BY assigned_week DESC, id DESC`,
		courseID, topic, string(activity.TypeRemedialTask), string(activity.StatusReady), maxWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []activity.Activity
	for rows.Next() {
		var a activity.Activity
		var typ, status, qjson string
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.Topic, &typ, &status,
			&a.WeightMultiplier, &a.TimeLimitSec, &a.Deadline, &a.AssignedWeek,
			&a.PublishedAt, &a.CreatedAt, &qjson); err != nil {
			return nil, err
		}
		a.Type = activity.Type(typ)
		a.Status = activity.Status(status)
		if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (c *SQLCatalog) OpenAssignment(ctx context.Context, studentID, courseID, topic string) (*Assignment, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id,student_id,activity_id,course_id,topic,assigned_at,completed_at
		FROM remedial_assignments
		WHERE student_id=$1 AND course_id=$2 AND topic=$3 AND completed_at=0
		LIMIT 1`, studentID, courseID, topic)
	var a Assignment
	err := row.Scan(&a.ID, &a.StudentID, &a.ActivityID, &a.CourseID, &a.Topic, &a.AssignedAt, &a.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *SQLCatalog) HasAssignment(ctx context.Context, studentID, activityID string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM remedial_assignments WHERE student_id=$1 AND activity_id=$2`,
		studentID, activityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *SQLCatalog) Create(ctx context.Context, a Assignment) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO remedial_assignments
		(id,student_id,activity_id,course_id,topic,assigned_at,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,0)`,
		a.ID, a.StudentID, a.ActivityID, a.CourseID, a.Topic, a.AssignedAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
			return errs.Conflict("assignment already exists for student " + a.StudentID)
		}
	}
	return err
}

func (c *SQLCatalog) Complete(ctx context.Context, studentID, activityID string, at int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, `UPDATE remedial_assignments
		SET completed_at=$1 WHERE student_id=$2 AND activity_id=$3 AND completed_at=0`,
		at, studentID, activityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
