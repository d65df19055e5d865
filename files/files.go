package files

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"portfolio-server/config"
	"portfolio-server/core"
	"portfolio-server/files/disk"
	"portfolio-server/files/s3"

	"github.com/sirupsen/logrus"
)

// MaxUploadSize is the hard cap on a single uploaded image.
const MaxUploadSize = 50 << 20 // 50 MiB

// Store is the blob storage for uploaded image files. Remove is idempotent;
// removing an absent file is not an error.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	TotalSize(ctx context.Context) (int64, error)
}

// StoredFile describes an upload that passed validation and was written.
type StoredFile struct {
	Name     string
	Size     int64
	MimeType string
}

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

var allowedMimes = map[string]bool{
	"image/jpeg":  true,
	"image/pjpeg": true,
	"image/png":   true,
	"image/gif":   true,
	"image/webp":  true,
	"image/bmp":   true,
	"image/tiff":  true,
}

// GetStore selects the file storage backend from the configuration.
func GetStore(cfg *config.Config) Store {
	storageField := logrus.Fields{
		"fileStorageType": cfg.FileStorageType,
	}

	var store Store
	switch cfg.FileStorageType {
	case "s3":
		storageField["bucketName"] = cfg.S3Bucket
		store = s3.NewStore(cfg.S3Bucket)
	default:
		storageField["fileStorageType"] = "disk"
		storageField["uploadDir"] = cfg.UploadDir
		store = disk.NewStore(cfg.UploadDir)
	}
	logrus.WithFields(storageField).Info("Use file storage")
	return store
}

// Accept validates an upload and writes it to the store under a fresh unique
// name. Nothing is written when validation fails.
func Accept(ctx context.Context, store Store, r io.Reader, size int64, filename, contentType string) (*StoredFile, error) {
	if size > MaxUploadSize {
		return nil, core.ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return nil, core.ErrUnsupportedType
	}
	if !allowedMimes[strings.ToLower(contentType)] {
		return nil, core.ErrUnsupportedType
	}

	name := uniqueName(ext)
	if err := store.Save(ctx, name, io.LimitReader(r, MaxUploadSize)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"file":     name,
		"size":     size,
		"mimeType": contentType,
	}).Info("Upload stored")

	return &StoredFile{Name: name, Size: size, MimeType: contentType}, nil
}

// uniqueName builds a collision-resistant filename keeping the original
// extension: <unix-ms>-<8 hex chars><ext>.
func uniqueName(ext string) string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(suffix), ext)
}
