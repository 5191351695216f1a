// Package errs defines the error taxonomy shared by the attempt engine.
// Callers branch on these with errors.As / errors.Is; the HTTP layer maps
// them onto status codes.
package errs

import "fmt"

// ValidationError covers malformed or incomplete input: missing answers,
// wrong answer shape for a question type, duplicate or foreign question ids,
// grades outside [0, max]. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError covers unknown activities, attempts and questions.
type NotFoundError struct {
	Kind string // "activity", "attempt", "question", ...
	ID   string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found: " + e.ID }

func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// AccessDeniedError covers ownership and course-scope violations. The engine
// re-raises what the authorization gate returns without wrapping.
type AccessDeniedError struct {
	Msg string
}

func (e *AccessDeniedError) Error() string { return e.Msg }

func AccessDenied(msg string) error { return &AccessDeniedError{Msg: msg} }

// NotPublishedError rejects attempt operations on a DRAFT activity.
type NotPublishedError struct {
	ActivityID string
}

func (e *NotPublishedError) Error() string { return "activity not published: " + e.ActivityID }

// DeadlinePassedError rejects attempt operations past the activity deadline.
type DeadlinePassedError struct {
	ActivityID string
}

func (e *DeadlinePassedError) Error() string { return "deadline passed for activity " + e.ActivityID }

// TimeLimitExceededError rejects a submit that arrives after the time limit
// of a timed activity ran out. The attempt is not finalized by the rejected
// call; the next start() heals it.
type TimeLimitExceededError struct {
	AttemptID string
}

func (e *TimeLimitExceededError) Error() string { return "time limit exceeded for attempt " + e.AttemptID }

// ConflictError signals a uniqueness violation, e.g. two start() calls racing
// to create the same attempt number. Stores return it so the service can
// re-read the winning row.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(msg string) error { return &ConflictError{Msg: msg} }
