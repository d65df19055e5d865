package core

import "errors"

var (
	// ErrNotFound is returned when no work matches the requested id.
	ErrNotFound = errors.New("work not found")

	// ErrTitleRequired is returned when a work is created or updated with an
	// empty title.
	ErrTitleRequired = errors.New("title is required")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")

	// ErrUnsupportedType is returned when an upload is not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported file type")
)
