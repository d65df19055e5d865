package core

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type (
	// Work represents one gallery entry: an uploaded image plus its metadata.
	Work struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Image       string    `json:"image"`
		Thumbnail   string    `json:"thumbnail"`
		Date        string    `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
		FileSize    int64     `json:"fileSize"`
		FileType    string    `json:"fileType"`
	}

	// WorkStore defines the persistence layer for the gallery collection.
	// The collection is ordered newest first; every mutation rewrites the
	// whole backing document.
	WorkStore interface {
		// List returns every work in stored order (newest first).
		List(ctx context.Context) ([]*Work, error)

		// Get returns a single work by its id.
		Get(ctx context.Context, id string) (*Work, error)

		// Create validates the work and prepends it to the collection.
		Create(ctx context.Context, work *Work) error

		// Update replaces title and description of an existing work. It never
		// touches id, image, thumbnail or createdAt.
		Update(ctx context.Context, id, title, description string) (*Work, error)

		// Delete removes a work and returns the removed record so the caller
		// can clean up its backing files.
		Delete(ctx context.Context, id string) (*Work, error)
	}
)

// NewWork builds a gallery entry for a freshly stored image file. The id is
// a ULID, unique across the collection and never reused.
func NewWork(title, description, image, thumbnail, fileType string, fileSize int64) *Work {
	now := time.Now()
	return &Work{
		ID:          ulid.Make().String(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Image:       image,
		Thumbnail:   thumbnail,
		Date:        now.Format("02.01.2006"),
		CreatedAt:   now,
		UpdatedAt:   now,
		FileSize:    fileSize,
		FileType:    fileType,
	}
}
