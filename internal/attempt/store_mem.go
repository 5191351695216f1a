package attempt

import (
	"context"
	"sort"
	"sync"

	"github.com/studylane/assessment-engine/internal/errs"
)

type memoryStore struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
}

// NewInMemoryStore backs the engine without a database, for tests and
// offline runs. It enforces the same uniqueness rules the SQL schema does.
func NewInMemoryStore() Store {
	return &memoryStore{attempts: map[string]Attempt{}}
}

func (m *memoryStore) Create(ctx context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.attempts {
		if cur.ActivityID != a.ActivityID || cur.StudentID != a.StudentID {
			continue
		}
		if cur.Status == StatusInProgress {
			return errs.Conflict("attempt already in progress for student " + a.StudentID)
		}
		if cur.Number == a.Number {
			return errs.Conflict("duplicate attempt number")
		}
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, errs.NotFound("attempt", id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) Active(ctx context.Context, activityID, studentID string) (*Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.ActivityID == activityID && a.StudentID == studentID && a.Status == StatusInProgress {
			c := cloneAttempt(a)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) MaxNumber(ctx context.Context, activityID, studentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, a := range m.attempts {
		if a.ActivityID == activityID && a.StudentID == studentID && a.Number > max {
			max = a.Number
		}
	}
	return max, nil
}

func (m *memoryStore) Save(ctx context.Context, a Attempt, from Status) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok {
		return Attempt{}, errs.NotFound("attempt", a.ID)
	}
	if cur.Status != from {
		return Attempt{}, errs.Conflict("attempt " + a.ID + " is " + string(cur.Status) + ", not " + string(from))
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return cloneAttempt(a), nil
}

func (m *memoryStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		if opts.ActivityID != "" && a.ActivityID != opts.ActivityID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	key := func(a Attempt) int64 {
		if opts.Sort == "submitted_at" {
			return a.SubmittedAt
		}
		return a.StartedAt
	}
	sort.Slice(out, func(i, j int) bool {
		if key(out[i]) != key(out[j]) {
			return key(out[i]) > key(out[j])
		}
		return out[i].ID > out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func cloneAttempt(a Attempt) Attempt {
	answers := make([]AnswerRecord, len(a.Answers))
	copy(answers, a.Answers)
	for i := range answers {
		if answers[i].IsCorrect != nil {
			v := *answers[i].IsCorrect
			answers[i].IsCorrect = &v
		}
		if answers[i].PointsAwarded != nil {
			v := *answers[i].PointsAwarded
			answers[i].PointsAwarded = &v
		}
	}
	a.Answers = answers
	return a
}
