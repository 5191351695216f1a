package activity

import (
	"context"
	"sort"
	"sync"

	"github.com/studylane/assessment-engine/internal/errs"
)

type memoryStore struct {
	mu   sync.RWMutex
	acts map[string]Activity
}

// NewInMemoryStore backs the engine without a database, for tests and
// offline runs.
func NewInMemoryStore() Store {
	return &memoryStore{acts: map[string]Activity{}}
}

func (m *memoryStore) Put(ctx context.Context, a Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.acts[a.ID]; ok && cur.Status == StatusReady {
		return errs.Validationf("activity %s is published and immutable", a.ID)
	}
	m.acts[a.ID] = a
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.acts[id]
	if !ok {
		return Activity{}, errs.NotFound("activity", id)
	}
	return a, nil
}

func (m *memoryStore) Publish(ctx context.Context, id string, publishedAt int64) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.acts[id]
	if !ok {
		return Activity{}, errs.NotFound("activity", id)
	}
	if err := CanPublish(a); err != nil {
		return Activity{}, err
	}
	a.Status = StatusReady
	a.PublishedAt = publishedAt
	m.acts[id] = a
	return a, nil
}

func (m *memoryStore) List(ctx context.Context, opts ListOpts) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Activity, 0, len(m.acts))
	for _, a := range m.acts {
		if opts.CourseID != "" && a.CourseID != opts.CourseID {
			continue
		}
		if opts.Topic != "" && a.Topic != opts.Topic {
			continue
		}
		if opts.Type != "" && a.Type != opts.Type {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	// newest assigned week first, then id desc: the order the remedial
	// trigger scans candidates in
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedWeek != out[j].AssignedWeek {
			return out[i].AssignedWeek > out[j].AssignedWeek
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
