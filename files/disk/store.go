package disk

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

type diskStore struct {
	basePath string
}

// NewStore creates a disk-backed file store rooted at basePath.
func NewStore(basePath string) *diskStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create upload directory: %v", err)
	}
	return &diskStore{basePath: basePath}
}

// checkName rejects names that would escape the upload directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name {
		return fmt.Errorf("invalid file name: must not be a path")
	}
	return nil
}

func (s *diskStore) Save(ctx context.Context, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	filePath := filepath.Join(s.basePath, name)

	f, err := os.Create(filePath)
	if err != nil {
		logrus.WithError(err).WithField("path", filePath).Error("Failed to create upload file")
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(filePath)
		logrus.WithError(err).WithField("path", filePath).Error("Failed to write upload file")
		return err
	}
	return nil
}

func (s *diskStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found", name)
		}
		return nil, err
	}
	return f, nil
}

func (s *diskStore) Remove(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	filePath := filepath.Join(s.basePath, name)

	err := os.Remove(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", filePath).Warn("File not found for removal, considered successful")
			return nil
		}
		logrus.WithError(err).WithField("path", filePath).Error("Failed to remove file")
		return err
	}
	return nil
}

func (s *diskStore) TotalSize(ctx context.Context) (int64, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logrus.WithError(err).Warnf("Failed to stat %s, skipping", entry.Name())
			continue
		}
		total += info.Size()
	}
	return total, nil
}
