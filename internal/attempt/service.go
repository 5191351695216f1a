package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/errs"
	"github.com/studylane/assessment-engine/internal/eventlog"
	"github.com/studylane/assessment-engine/internal/grading"
	"github.com/studylane/assessment-engine/internal/notify"
)

// EventAppender is the slice of the event log repo the service needs.
type EventAppender interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// Service is the attempt lifecycle manager: it owns the
// in_progress -> submitted -> graded transitions, time-limit enforcement and
// idempotent attempt creation. All state for a single transition is written
// through one Store.Save call (one transaction).
type Service struct {
	store  Store
	acts   ActivityLookup
	gate   AuthorizationGate
	grader grading.Grader
	hooks  []ResultHook
	sink   notify.Sink
	events EventAppender
	logger *slog.Logger
	now    func() int64
}

type Option func(*Service)

// WithClock replaces the wall clock, for time-limit tests.
func WithClock(now func() int64) Option { return func(s *Service) { s.now = now } }

// WithHooks registers post-finalization hooks (the remedial trigger).
func WithHooks(hooks ...ResultHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, hooks...) }
}

func WithSink(sink notify.Sink) Option { return func(s *Service) { s.sink = sink } }

func WithEventLog(ev EventAppender) Option { return func(s *Service) { s.events = ev } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(store Store, acts ActivityLookup, gate AuthorizationGate, grader grading.Grader, opts ...Option) *Service {
	s := &Service{
		store:  store,
		acts:   acts,
		gate:   gate,
		grader: grader,
		sink:   notify.Discard{},
		logger: slog.Default(),
		now:    func() int64 { return time.Now().Unix() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start returns the student's in_progress attempt for the activity, creating
// one if none exists. Calling it twice in a row yields the same attempt id
// with Created=false the second time. A stale attempt on a timed activity is
// finalized with score 0 first and a fresh attempt is created in its place.
func (s *Service) Start(ctx context.Context, activityID, studentID string) (StartResult, error) {
	if err := s.gate.CanAttempt(ctx, studentID, activityID); err != nil {
		return StartResult{}, err
	}
	act, err := s.acts.Get(ctx, activityID)
	if err != nil {
		return StartResult{}, err
	}
	now := s.now()
	if err := checkOpen(act, now); err != nil {
		return StartResult{}, err
	}

	active, err := s.store.Active(ctx, activityID, studentID)
	if err != nil {
		return StartResult{}, err
	}
	if active != nil {
		if !s.expired(act, *active, now) {
			return StartResult{Attempt: *active, Created: false}, nil
		}
		if err := s.finalizeExpired(ctx, act, *active, now); err != nil {
			return StartResult{}, err
		}
	}

	// Constraint-violation retry instead of locking: racing starts resolve
	// to exactly one winner, the loser observes the winner's row.
	for i := 0; i < 3; i++ {
		max, err := s.store.MaxNumber(ctx, activityID, studentID)
		if err != nil {
			return StartResult{}, err
		}
		a := Attempt{
			ID:         uuid.NewString(),
			ActivityID: activityID,
			StudentID:  studentID,
			Number:     max + 1,
			Status:     StatusInProgress,
			StartedAt:  now,
		}
		err = s.store.Create(ctx, a)
		if err == nil {
			s.appendEvent(ctx, eventlog.TypeAttemptStarted, a.ID, a)
			return StartResult{Attempt: a, Created: true}, nil
		}
		var conflict *errs.ConflictError
		if !errors.As(err, &conflict) {
			return StartResult{}, err
		}
		winner, aerr := s.store.Active(ctx, activityID, studentID)
		if aerr != nil {
			return StartResult{}, aerr
		}
		if winner != nil {
			return StartResult{Attempt: *winner, Created: false}, nil
		}
		// number collision without an active row: re-read max and retry
	}
	return StartResult{}, errs.Conflict("could not create attempt for activity " + activityID)
}

// Submit replaces the attempt's answers, auto-grades them and moves the
// attempt to graded (no open questions) or submitted (manual grading ahead).
// A second submit on a finished attempt fails fast instead of overwriting.
func (s *Service) Submit(ctx context.Context, attemptID, studentID string, answers []AnswerInput) (View, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return View{}, err
	}
	if a.StudentID != studentID {
		return View{}, errs.AccessDenied("attempt " + attemptID + " is not owned by caller")
	}
	if err := s.gate.CanAttempt(ctx, studentID, a.ActivityID); err != nil {
		return View{}, err
	}
	if a.Status != StatusInProgress {
		return View{}, errs.Validationf("attempt %s is already %s", a.ID, a.Status)
	}
	act, err := s.acts.Get(ctx, a.ActivityID)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	if err := checkOpen(act, now); err != nil {
		return View{}, err
	}
	if s.expired(act, a, now) {
		// Not auto-submitted here; the next Start() finalizes it.
		return View{}, &errs.TimeLimitExceededError{AttemptID: a.ID}
	}

	records, err := s.gradeSubmission(ctx, act, answers)
	if err != nil {
		return View{}, err
	}

	a.Answers = records
	a.Score = sumAwarded(records)
	a.MaxScore = act.MaxScore()
	a.SubmittedAt = now
	if act.HasOpenQuestions() {
		a.Status = StatusSubmitted
	} else {
		a.Status = StatusGraded
	}

	saved, err := s.store.Save(ctx, a, StatusInProgress)
	if err != nil {
		// A concurrent submit (or expiry finalization) won the race; fail
		// fast the same way a sequential second submit does.
		var conflict *errs.ConflictError
		if errors.As(err, &conflict) {
			return View{}, errs.Validationf("attempt %s is no longer in progress", a.ID)
		}
		return View{}, err
	}
	s.appendEvent(ctx, eventlog.TypeAttemptSubmitted, saved.ID, saved)
	s.finish(ctx, act, saved, saved.Status == StatusGraded)
	return s.view(act, saved), nil
}

// Grade applies manual grades to open answers. Re-grading a graded attempt
// is allowed; the full score is recomputed from all answers every time.
func (s *Service) Grade(ctx context.Context, attemptID, graderID string, grades []GradeInput) (View, error) {
	if err := s.gate.CanGrade(ctx, graderID, attemptID); err != nil {
		return View{}, err
	}
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return View{}, err
	}
	if a.Status == StatusInProgress {
		return View{}, errs.Validationf("attempt %s has not been submitted", a.ID)
	}
	act, err := s.acts.Get(ctx, a.ActivityID)
	if err != nil {
		return View{}, err
	}
	if len(grades) == 0 {
		return View{}, errs.Validationf("no grades given")
	}
	now := s.now()
	seen := make(map[string]bool, len(grades))
	for _, g := range grades {
		if seen[g.QuestionID] {
			return View{}, errs.Validationf("duplicate grade for question %s", g.QuestionID)
		}
		seen[g.QuestionID] = true

		q, ok := act.Question(g.QuestionID)
		if !ok || q.Type != activity.QuestionOpen {
			return View{}, errs.Validationf("question %s is not an open question of this attempt", g.QuestionID)
		}
		rec, ok := a.Answer(g.QuestionID)
		if !ok {
			return View{}, errs.Validationf("no answer for question %s in attempt %s", g.QuestionID, a.ID)
		}
		if g.PointsAwarded < 0 || g.PointsAwarded > q.Points {
			return View{}, errs.Validationf("points for question %s must be in [0,%d]", g.QuestionID, q.Points)
		}
		points := g.PointsAwarded
		correct := points == q.Points
		rec.PointsAwarded = &points
		rec.IsCorrect = &correct
		rec.Feedback = g.Feedback
		rec.GradedAt = now
	}

	prior := a.Status
	wasGraded := prior == StatusGraded
	a.Score = sumAwarded(a.Answers)
	a.MaxScore = act.MaxScore()
	if s.allOpenGraded(act, a) {
		a.Status = StatusGraded
	} else {
		a.Status = StatusSubmitted
	}

	saved, err := s.store.Save(ctx, a, prior)
	if err != nil {
		return View{}, err
	}
	s.logger.Info("manual grades applied",
		"attempt_id", saved.ID, "grader_id", graderID, "count", len(grades),
		"score", saved.Score, "status", saved.Status)
	s.appendEvent(ctx, eventlog.TypeAttemptGraded, saved.ID, saved)
	s.finish(ctx, act, saved, saved.Status == StatusGraded && !wasGraded)
	return s.view(act, saved), nil
}

// GetAttempt returns an attempt to its owner, or to a caller the gate allows
// to grade it.
func (s *Service) GetAttempt(ctx context.Context, attemptID, callerID string) (View, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return View{}, err
	}
	if a.StudentID != callerID {
		if err := s.gate.CanGrade(ctx, callerID, attemptID); err != nil {
			return View{}, err
		}
	}
	act, err := s.acts.Get(ctx, a.ActivityID)
	if err != nil {
		return View{}, err
	}
	return s.view(act, a), nil
}

// ListAttempts filters attempts for dashboards. Scoping the student filter
// to the caller is the transport layer's job.
func (s *Service) ListAttempts(ctx context.Context, opts ListOpts) ([]View, error) {
	list, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	weights := map[string]int{}
	out := make([]View, 0, len(list))
	for _, a := range list {
		w, ok := weights[a.ActivityID]
		if !ok {
			act, err := s.acts.Get(ctx, a.ActivityID)
			if err != nil {
				return nil, err
			}
			w = act.WeightMultiplier
			weights[a.ActivityID] = w
		}
		out = append(out, View{Attempt: a, Weighted: Weigh(a.Score, a.MaxScore, w)})
	}
	return out, nil
}

// --- internals ---

func checkOpen(act activity.Activity, now int64) error {
	if act.Status != activity.StatusReady {
		return &errs.NotPublishedError{ActivityID: act.ID}
	}
	if act.Deadline > 0 && now > act.Deadline {
		return &errs.DeadlinePassedError{ActivityID: act.ID}
	}
	return nil
}

func (s *Service) expired(act activity.Activity, a Attempt, now int64) bool {
	return act.Timed() && now-a.StartedAt > int64(act.TimeLimitSec)
}

// finalizeExpired closes a stale timed attempt with score 0. This is a
// deliberate self-heal on the next visit, not an error path; no remedial
// trigger fires here since the transition happens via start(), not grading.
func (s *Service) finalizeExpired(ctx context.Context, act activity.Activity, a Attempt, now int64) error {
	a.Status = StatusGraded
	a.Score = 0
	a.MaxScore = act.MaxScore()
	a.SubmittedAt = now
	if _, err := s.store.Save(ctx, a, StatusInProgress); err != nil {
		// Already finalized by a racing start: nothing left to heal.
		var conflict *errs.ConflictError
		if errors.As(err, &conflict) {
			return nil
		}
		return fmt.Errorf("finalize expired attempt %s: %w", a.ID, err)
	}
	s.logger.Info("expired attempt finalized", "attempt_id", a.ID, "activity_id", act.ID)
	s.appendEvent(ctx, eventlog.TypeAttemptExpired, a.ID, a)
	return nil
}

// gradeSubmission validates the answer set against the activity and grades
// every answer. Every question must be answered exactly once.
func (s *Service) gradeSubmission(ctx context.Context, act activity.Activity, answers []AnswerInput) ([]AnswerRecord, error) {
	byQuestion := make(map[string]AnswerInput, len(answers))
	for _, in := range answers {
		if _, ok := act.Question(in.QuestionID); !ok {
			return nil, errs.Validationf("question %s does not belong to activity %s", in.QuestionID, act.ID)
		}
		if _, dup := byQuestion[in.QuestionID]; dup {
			return nil, errs.Validationf("duplicate answer for question %s", in.QuestionID)
		}
		byQuestion[in.QuestionID] = in
	}

	questions := make([]activity.Question, len(act.Questions))
	copy(questions, act.Questions)
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })

	records := make([]AnswerRecord, 0, len(questions))
	for _, q := range questions {
		in, ok := byQuestion[q.ID]
		if !ok {
			return nil, errs.Validationf("missing answer for question %s", q.ID)
		}
		if err := checkShape(q, in); err != nil {
			return nil, err
		}
		res, err := s.grader.Grade(ctx, grading.Q{
			Type:          string(q.Type),
			Points:        q.Points,
			CorrectOption: q.CorrectOption,
			CorrectText:   q.CorrectTextAnswer,
		}, grading.Answer{SelectedOption: in.SelectedOption, Text: in.TextAnswer})
		if err != nil {
			return nil, fmt.Errorf("grade question %s: %w", q.ID, err)
		}
		correct := res.Correct
		points := res.Points
		records = append(records, AnswerRecord{
			QuestionID:     q.ID,
			SelectedOption: in.SelectedOption,
			TextAnswer:     in.TextAnswer,
			IsCorrect:      &correct,
			PointsAwarded:  &points,
		})
	}
	return records, nil
}

func checkShape(q activity.Question, in AnswerInput) error {
	switch q.Type {
	case activity.QuestionSingleChoice:
		if in.SelectedOption < 1 || in.SelectedOption > activity.OptionCount {
			return errs.Validationf("question %s: selected_option must be in 1..%d", q.ID, activity.OptionCount)
		}
	case activity.QuestionText, activity.QuestionOpen:
		if isBlank(in.TextAnswer) {
			return errs.Validationf("question %s: text_answer must not be blank", q.ID)
		}
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func (s *Service) allOpenGraded(act activity.Activity, a Attempt) bool {
	for _, q := range act.Questions {
		if q.Type != activity.QuestionOpen {
			continue
		}
		rec, ok := a.Answer(q.ID)
		if !ok || rec.GradedAt == 0 {
			return false
		}
	}
	return true
}

func sumAwarded(records []AnswerRecord) int {
	total := 0
	for _, r := range records {
		if r.PointsAwarded != nil {
			total += *r.PointsAwarded
		}
	}
	return total
}

// finish runs the side effects of a finalized attempt: hooks (remedial
// trigger) and the graded notification. Neither may fail the transaction
// that already committed.
func (s *Service) finish(ctx context.Context, act activity.Activity, a Attempt, intoGraded bool) {
	for _, h := range s.hooks {
		h.AttemptFinalized(ctx, act, a, intoGraded)
	}
	if intoGraded {
		notify.Dispatch(ctx, s.sink, s.logger, a.StudentID, notify.KindAttemptGraded, map[string]any{
			"attempt_id":  a.ID,
			"activity_id": act.ID,
			"score":       a.Score,
			"max_score":   a.MaxScore,
		})
	}
}

func (s *Service) view(act activity.Activity, a Attempt) View {
	return View{Attempt: a, Weighted: Weigh(a.Score, a.MaxScore, act.WeightMultiplier)}
}

func (s *Service) appendEvent(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		s.logger.Warn("event log append failed", "type", typ, "key", key, "err", err)
	}
}
