package remedial

import (
	"context"
	"sort"
	"sync"

	"github.com/studylane/assessment-engine/internal/activity"
	"github.com/studylane/assessment-engine/internal/errs"
)

type memoryCatalog struct {
	mu          sync.RWMutex
	acts        activity.Store
	assignments map[string]Assignment // key: student|activity
}

// NewInMemoryCatalog serves candidates from an activity store and keeps
// assignment rows in memory, for tests and offline runs.
func NewInMemoryCatalog(acts activity.Store) Catalog {
	return &memoryCatalog{acts: acts, assignments: map[string]Assignment{}}
}

func asgKey(studentID, activityID string) string { return studentID + "|" + activityID }

func (m *memoryCatalog) Candidates(ctx context.Context, courseID, topic string, maxWeek int) ([]activity.Activity, error) {
	all, err := m.acts.List(ctx, activity.ListOpts{
		CourseID: courseID,
		Topic:    topic,
		Type:     activity.TypeRemedialTask,
		Status:   activity.StatusReady,
	})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if a.AssignedWeek <= maxWeek {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedWeek != out[j].AssignedWeek {
			return out[i].AssignedWeek > out[j].AssignedWeek
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryCatalog) OpenAssignment(ctx context.Context, studentID, courseID, topic string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.assignments {
		if a.StudentID == studentID && a.CourseID == courseID && a.Topic == topic && a.CompletedAt == 0 {
			c := a
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryCatalog) HasAssignment(ctx context.Context, studentID, activityID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.assignments[asgKey(studentID, activityID)]
	return ok, nil
}

func (m *memoryCatalog) Create(ctx context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := asgKey(a.StudentID, a.ActivityID)
	if _, ok := m.assignments[k]; ok {
		return errs.Conflict("assignment already exists for student " + a.StudentID)
	}
	m.assignments[k] = a
	return nil
}

func (m *memoryCatalog) Complete(ctx context.Context, studentID, activityID string, at int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := asgKey(studentID, activityID)
	a, ok := m.assignments[k]
	if !ok || a.CompletedAt != 0 {
		return false, nil
	}
	a.CompletedAt = at
	m.assignments[k] = a
	return true, nil
}
