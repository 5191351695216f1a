// Package remedial assigns follow-up tasks to students whose graded results
// fall below a threshold, and marks those tasks completed when the student
// works through them.
package remedial

import (
	"context"

	"github.com/studylane/assessment-engine/internal/activity"
)

// Assignment links a struggling student to a remedial activity for a weak
// topic. CompletedAt stays 0 until the student finishes the task.
type Assignment struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	ActivityID  string `json:"activity_id"`
	CourseID    string `json:"course_id"`
	Topic       string `json:"topic"`
	AssignedAt  int64  `json:"assigned_at"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

// Catalog is the trigger's view of remedial tasks and assignment rows.
type Catalog interface {
	// Candidates returns READY remedial_task activities for (course, topic),
	// ordered assigned_week desc then id desc, excluding weeks after maxWeek.
	Candidates(ctx context.Context, courseID, topic string, maxWeek int) ([]activity.Activity, error)

	// OpenAssignment returns the student's uncompleted assignment for
	// (course, topic), or nil.
	OpenAssignment(ctx context.Context, studentID, courseID, topic string) (*Assignment, error)

	// HasAssignment reports whether any assignment row (completed or not)
	// exists for (student, activity).
	HasAssignment(ctx context.Context, studentID, activityID string) (bool, error)

	// Create inserts one assignment row; a duplicate (student, activity)
	// pair fails with errs.ConflictError.
	Create(ctx context.Context, a Assignment) error

	// Complete sets completed_at if it is unset and reports whether this
	// call set it.
	Complete(ctx context.Context, studentID, activityID string, at int64) (bool, error)
}
