package remedial

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/attempt"
	"github.com/studylane/assessment-engine/internal/errs"
	"github.com/studylane/assessment-engine/internal/eventlog"
	"github.com/studylane/assessment-engine/internal/notify"
)

// DefaultMinPercent is the score threshold under which remediation kicks in.
const DefaultMinPercent = 50.0

// EventAppender is the slice of the event log repo the trigger needs.
type EventAppender interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// Trigger reacts to finalized attempts. It assigns at most one remedial task
// per weak (course, topic) when a homework/control-work score lands below the
// threshold, and marks remedial assignments completed when the attempt
// belongs to a remedial task. It implements attempt.ResultHook; failures are
// logged, never propagated.
type Trigger struct {
	catalog     Catalog
	sink        notify.Sink
	events      EventAppender
	logger      *slog.Logger
	minPercent  float64
	currentWeek func() int
	now         func() int64
}

type Option func(*Trigger)

func WithMinPercent(p float64) Option { return func(t *Trigger) { t.minPercent = p } }

func WithSink(sink notify.Sink) Option { return func(t *Trigger) { t.sink = sink } }

func WithLogger(l *slog.Logger) Option { return func(t *Trigger) { t.logger = l } }

// WithWeek replaces the current-week source, for tests.
func WithWeek(fn func() int) Option { return func(t *Trigger) { t.currentWeek = fn } }

func WithClock(now func() int64) Option { return func(t *Trigger) { t.now = now } }

func WithEventLog(ev EventAppender) Option { return func(t *Trigger) { t.events = ev } }

func NewTrigger(catalog Catalog, opts ...Option) *Trigger {
	t := &Trigger{
		catalog:     catalog,
		sink:        notify.Discard{},
		logger:      slog.Default(),
		minPercent:  DefaultMinPercent,
		currentWeek: isoWeek,
		now:         func() int64 { return time.Now().Unix() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// isoWeek encodes year and ISO week into one comparable int, the same
// encoding activities carry in assigned_week.
func isoWeek() int {
	y, w := time.Now().ISOWeek()
	return y*100 + w
}

// AttemptFinalized runs after every submit/grade that left the attempt in
// submitted or graded state.
func (t *Trigger) AttemptFinalized(ctx context.Context, act activity.Activity, a attempt.Attempt, intoGraded bool) {
	// Always-run hook, independent of the threshold logic: working a
	// remedial task closes the matching assignment.
	if act.Type == activity.TypeRemedialTask {
		t.markCompleted(ctx, act, a)
		return
	}
	if !intoGraded {
		return
	}
	if act.Type != activity.TypeHomeworkTest && act.Type != activity.TypeControlWork {
		return
	}
	t.assignIfWeak(ctx, act, a)
}

func (t *Trigger) markCompleted(ctx context.Context, act activity.Activity, a attempt.Attempt) {
	done, err := t.catalog.Complete(ctx, a.StudentID, act.ID, t.now())
	if err != nil {
		t.logger.Warn("remedial completion failed", "student_id", a.StudentID, "activity_id", act.ID, "err", err)
		return
	}
	if !done {
		return
	}
	t.logger.Info("remedial assignment completed", "student_id", a.StudentID, "activity_id", act.ID)
	notify.Dispatch(ctx, t.sink, t.logger, a.StudentID, notify.KindRemedialCompleted, map[string]any{
		"activity_id": act.ID,
		"topic":       act.Topic,
	})
}

func (t *Trigger) assignIfWeak(ctx context.Context, act activity.Activity, a attempt.Attempt) {
	if a.MaxScore <= 0 {
		return // percent undefined
	}
	percent := float64(a.Score) / float64(a.MaxScore) * 100
	if percent >= t.minPercent {
		return
	}

	// One active remediation per weak topic at a time.
	open, err := t.catalog.OpenAssignment(ctx, a.StudentID, act.CourseID, act.Topic)
	if err != nil {
		t.logger.Warn("remedial lookup failed", "student_id", a.StudentID, "topic", act.Topic, "err", err)
		return
	}
	if open != nil {
		return
	}

	cands, err := t.catalog.Candidates(ctx, act.CourseID, act.Topic, t.currentWeek())
	if err != nil {
		t.logger.Warn("remedial candidates failed", "course_id", act.CourseID, "topic", act.Topic, "err", err)
		return
	}
	for _, cand := range cands {
		assigned, err := t.catalog.HasAssignment(ctx, a.StudentID, cand.ID)
		if err != nil {
			t.logger.Warn("remedial lookup failed", "student_id", a.StudentID, "activity_id", cand.ID, "err", err)
			return
		}
		if assigned {
			// completed earlier or assigned earlier; try the next task
			continue
		}
		asg := Assignment{
			ID:         uuid.NewString(),
			StudentID:  a.StudentID,
			ActivityID: cand.ID,
			CourseID:   act.CourseID,
			Topic:      act.Topic,
			AssignedAt: t.now(),
		}
		err = t.catalog.Create(ctx, asg)
		var conflict *errs.ConflictError
		if errors.As(err, &conflict) {
			// a racing trigger created it first: already handled
			return
		}
		if err != nil {
			t.logger.Warn("remedial assignment failed", "student_id", a.StudentID, "activity_id", cand.ID, "err", err)
			return
		}
		t.logger.Info("remedial assignment created",
			"student_id", a.StudentID, "activity_id", cand.ID, "topic", act.Topic, "percent", percent)
		if t.events != nil {
			if err := t.events.Append(ctx, eventlog.TypeRemedialAssigned, asg.ID, asg); err != nil {
				t.logger.Warn("event log append failed", "key", asg.ID, "err", err)
			}
		}
		notify.Dispatch(ctx, t.sink, t.logger, a.StudentID, notify.KindRemedialAssigned, map[string]any{
			"assignment_id": asg.ID,
			"activity_id":   cand.ID,
			"topic":         act.Topic,
		})
		return // one task per weak-topic trigger
	}
}
