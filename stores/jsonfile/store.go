package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"portfolio-server/core"

	"github.com/sirupsen/logrus"
)

// fileStore persists the whole collection as one JSON array on disk. Every
// mutation reads the full document, changes it in memory and writes it back.
// The mutex serializes writers; the externally visible CRUD semantics are
// the same as without it.
type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a JSON-file-backed work store. The file is created empty
// when it does not exist yet.
func NewStore(path string) *fileStore {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			log.Fatalf("failed to initialize works file: %v", err)
		}
		logrus.WithField("path", path).Info("Created empty works file")
	}
	return &fileStore{path: path}
}

func (s *fileStore) load() ([]*core.Work, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read works file: %w", err)
	}

	var works []*core.Work
	if err := json.Unmarshal(data, &works); err != nil {
		return nil, fmt.Errorf("parse works file: %w", err)
	}
	if works == nil {
		works = []*core.Work{}
	}
	return works, nil
}

func (s *fileStore) save(works []*core.Work) error {
	data, err := json.MarshalIndent(works, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal works: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write works file: %w", err)
	}
	return nil
}

func (s *fileStore) List(ctx context.Context) ([]*core.Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	works, err := s.load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load works")
		return nil, err
	}
	return works, nil
}

func (s *fileStore) Get(ctx context.Context, id string) (*core.Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	works, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, w := range works {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *fileStore) Create(ctx context.Context, work *core.Work) error {
	if strings.TrimSpace(work.Title) == "" {
		return core.ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	works, err := s.load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load works before create")
		return err
	}

	// Newest first.
	works = append([]*core.Work{work}, works...)
	if err := s.save(works); err != nil {
		logrus.WithError(err).Error("Failed to save works after create")
		return err
	}

	logrus.WithFields(logrus.Fields{"work_id": work.ID, "title": work.Title}).Info("Work created")
	return nil
}

func (s *fileStore) Update(ctx context.Context, id, title, description string) (*core.Work, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, core.ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	works, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, w := range works {
		if w.ID == id {
			w.Title = title
			w.Description = strings.TrimSpace(description)
			w.UpdatedAt = time.Now()
			if err := s.save(works); err != nil {
				logrus.WithError(err).Error("Failed to save works after update")
				return nil, err
			}
			logrus.WithField("work_id", id).Info("Work updated")
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *fileStore) Delete(ctx context.Context, id string) (*core.Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	works, err := s.load()
	if err != nil {
		return nil, err
	}

	for i, w := range works {
		if w.ID == id {
			works = append(works[:i], works[i+1:]...)
			if err := s.save(works); err != nil {
				logrus.WithError(err).Error("Failed to save works after delete")
				return nil, err
			}
			logrus.WithField("work_id", id).Info("Work deleted")
			return w, nil
		}
	}
	return nil, core.ErrNotFound
}
