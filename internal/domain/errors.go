package domain

import "errors"

var (
	// ErrNotFound is returned when an image or folder path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotDirectory is returned when a folder operation targets a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrUnsupportedFormat is returned when a file format or export format
	// cannot serve the requested operation.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidRecord is returned when a metadata record fails validation.
	ErrInvalidRecord = errors.New("invalid metadata record")
)
