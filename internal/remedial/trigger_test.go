package remedial_test

import (
	"context"
	"testing"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/attempt"
	"github.com/studylane/assessment-engine/internal/errs"
	"github.com/studylane/assessment-engine/internal/remedial"
)

func seedTask(t *testing.T, acts activity.Store, id, topic string, week int) {
	t.Helper()
	err := acts.Put(context.Background(), activity.Activity{
		ID: id, CourseID: "c1", Title: "Remediation " + id, Topic: topic,
		Type: activity.TypeRemedialTask, Status: activity.StatusReady,
		WeightMultiplier: 1, AssignedWeek: week,
		Questions: []activity.Question{
			{ID: id + "-q1", OrderIndex: 1, Type: activity.QuestionSingleChoice, Prompt: "retry", Points: 1,
				Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		},
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
}

func homework(topic string) activity.Activity {
	return activity.Activity{
		ID: "hw1", CourseID: "c1", Title: "Homework", Topic: topic,
		Type: activity.TypeHomeworkTest, Status: activity.StatusReady,
		WeightMultiplier: 1,
	}
}

func gradedAttempt(score, max int) attempt.Attempt {
	return attempt.Attempt{
		ID: "at1", ActivityID: "hw1", StudentID: "s1", Number: 1,
		Status: attempt.StatusGraded, Score: score, MaxScore: max,
	}
}

func newTrigger(acts activity.Store, opts ...remedial.Option) (*remedial.Trigger, remedial.Catalog) {
	catalog := remedial.NewInMemoryCatalog(acts)
	opts = append([]remedial.Option{
		remedial.WithWeek(func() int { return 202511 }),
		remedial.WithClock(func() int64 { return 1_000_000 }),
	}, opts...)
	return remedial.NewTrigger(catalog, opts...), catalog
}

func TestTriggerPicksMostRecentEligibleTask(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r-old", "Fractions", 202509)
	seedTask(t, acts, "r-new", "Fractions", 202510)
	seedTask(t, acts, "r-future", "Fractions", 202512)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(2, 10), true)

	open, err := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions")
	if err != nil {
		t.Fatalf("open assignment: %v", err)
	}
	if open == nil {
		t.Fatal("expected an assignment")
	}
	if open.ActivityID != "r-new" {
		t.Errorf("assigned %s, want r-new", open.ActivityID)
	}
}

func TestTriggerSkipsAlreadyAssignedTasks(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r-old", "Fractions", 202509)
	seedTask(t, acts, "r-new", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	// r-new was assigned and completed in an earlier cycle
	if err := catalog.Create(ctx, remedial.Assignment{
		StudentID: "s1", ActivityID: "r-new", CourseID: "c1", Topic: "Fractions", AssignedAt: 900_000,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := catalog.Complete(ctx, "s1", "r-new", 900_100); err != nil {
		t.Fatalf("complete: %v", err)
	}

	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(0, 10), true)

	open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions")
	if open == nil {
		t.Fatal("expected a fallback assignment")
	}
	if open.ActivityID != "r-old" {
		t.Errorf("assigned %s, want r-old", open.ActivityID)
	}
}

func TestTriggerThresholdBoundary(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	// exactly at the threshold is not weak
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(5, 10), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("50% must not trigger remediation")
	}

	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(4, 10), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open == nil {
		t.Error("40% must trigger remediation")
	}
}

func TestTriggerCustomThreshold(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts, remedial.WithMinPercent(80))

	ctx := context.Background()
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(7, 10), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open == nil {
		t.Error("70% must trigger at an 80% threshold")
	}
}

func TestTriggerIgnoresZeroMaxScore(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(0, 0), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("zero max score must not trigger remediation")
	}
}

func TestTriggerIgnoresNonGradedTransitions(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	a := gradedAttempt(0, 10)
	a.Status = attempt.StatusSubmitted
	trig.AttemptFinalized(ctx, homework("Fractions"), a, false)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("a transition into submitted must not trigger remediation")
	}
}

func TestTriggerIgnoresWeeklyStar(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ws := homework("Fractions")
	ws.Type = activity.TypeWeeklyStar

	ctx := context.Background()
	trig.AttemptFinalized(ctx, ws, gradedAttempt(0, 10), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("weekly star results must not trigger remediation")
	}
}

func TestTriggerStopsOnCreateConflict(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r-old", "Fractions", 202509)
	seedTask(t, acts, "r-new", "Fractions", 202510)
	catalog := &conflictOnce{Catalog: remedial.NewInMemoryCatalog(acts)}
	trig := remedial.NewTrigger(catalog,
		remedial.WithWeek(func() int { return 202511 }),
		remedial.WithClock(func() int64 { return 1_000_000 }),
	)

	ctx := context.Background()
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(0, 10), true)

	// a conflict means another trigger run won the race, so no fallback
	// to the next candidate should happen
	if catalog.creates != 1 {
		t.Errorf("creates = %d, want 1", catalog.creates)
	}
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("losing the race must not assign a different task")
	}
}

// conflictOnce simulates a racing trigger by rejecting the first Create
// with a conflict.
type conflictOnce struct {
	remedial.Catalog
	creates int
}

func (c *conflictOnce) Create(ctx context.Context, a remedial.Assignment) error {
	c.creates++
	return errs.Conflict("assignment already exists for student " + a.StudentID)
}

func TestTriggerCompletesAssignment(t *testing.T) {
	acts := activity.NewInMemoryStore()
	seedTask(t, acts, "r1", "Fractions", 202510)
	trig, catalog := newTrigger(acts)

	ctx := context.Background()
	trig.AttemptFinalized(ctx, homework("Fractions"), gradedAttempt(0, 10), true)
	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open == nil {
		t.Fatal("expected an assignment")
	}

	task, err := acts.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	done := gradedAttempt(1, 1)
	done.ActivityID = "r1"
	trig.AttemptFinalized(ctx, task, done, true)

	if open, _ := catalog.OpenAssignment(ctx, "s1", "c1", "Fractions"); open != nil {
		t.Error("assignment should be closed after the remedial attempt")
	}
}
