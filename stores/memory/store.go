package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"portfolio-server/core"

	"github.com/sirupsen/logrus"
)

// memStore keeps the collection in process memory, newest first. Used for
// tests and ephemeral runs.
type memStore struct {
	mu    sync.RWMutex
	works []*core.Work
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{works: []*core.Work{}}
}

func (s *memStore) List(ctx context.Context) ([]*core.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Work, len(s.works))
	copy(out, s.works)
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*core.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.works {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) Create(ctx context.Context, work *core.Work) error {
	if strings.TrimSpace(work.Title) == "" {
		return core.ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.works = append([]*core.Work{work}, s.works...)
	logrus.WithField("work_id", work.ID).Info("Work created")
	return nil
}

func (s *memStore) Update(ctx context.Context, id, title, description string) (*core.Work, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, core.ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.works {
		if w.ID == id {
			w.Title = title
			w.Description = strings.TrimSpace(description)
			w.UpdatedAt = time.Now()
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) Delete(ctx context.Context, id string) (*core.Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.works {
		if w.ID == id {
			s.works = append(s.works[:i], s.works[i+1:]...)
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}
