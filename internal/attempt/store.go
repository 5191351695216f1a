package attempt

import (
	"context"

	"github.com/studylane/assessment-engine/internal/activity"
)

type ListOpts struct {
	ActivityID string
	StudentID  string
	Status     Status
	Limit      int
	Offset     int
	Sort       string // started_at|submitted_at (desc); default started_at desc
}

// Store persists attempts and their answer records. Save must apply the
// attempt row and all answer rows in one transaction: concurrent submit and
// grade calls on the same attempt must not interleave partial writes.
type Store interface {
	// Create inserts a fresh attempt. A second in_progress attempt for the
	// same (activity, student), or a duplicate attempt number, fails with
	// errs.ConflictError so racing start() calls can re-read the winner.
	Create(ctx context.Context, a Attempt) error

	Get(ctx context.Context, id string) (Attempt, error)

	// Active returns the in_progress attempt for (activity, student), or nil.
	Active(ctx context.Context, activityID, studentID string) (*Attempt, error)

	// MaxNumber returns the highest attempt number ever used for
	// (activity, student), 0 when none exist.
	MaxNumber(ctx context.Context, activityID, studentID string) (int, error)

	// Save rewrites the attempt row and replaces its answer records
	// atomically, but only while the stored status still equals from.
	// A stale writer gets errs.ConflictError so a concurrent transition
	// cannot be silently overwritten. Attempts are never deleted.
	Save(ctx context.Context, a Attempt, from Status) (Attempt, error)

	List(ctx context.Context, opts ListOpts) ([]Attempt, error)
}

// ActivityLookup is how the lifecycle manager reads activity definitions.
// It returns the full definition, answer keys included; status and deadline
// rules are enforced by the service, not the lookup.
type ActivityLookup interface {
	Get(ctx context.Context, id string) (activity.Activity, error)
}

// AuthorizationGate owns course/class membership and role checks. The engine
// calls it at the start of every operation and re-raises its errors
// unchanged; it owns none of the underlying membership data.
type AuthorizationGate interface {
	CanAttempt(ctx context.Context, studentID, activityID string) error
	CanGrade(ctx context.Context, graderID, attemptID string) error
}

// ResultHook runs after an attempt reaches submitted or graded.
// intoGraded is true only when this call transitioned the attempt into
// graded (the remedial trigger fires on that edge). Hook failures are logged
// and never abort the triggering operation.
type ResultHook interface {
	AttemptFinalized(ctx context.Context, act activity.Activity, a Attempt, intoGraded bool)
}
