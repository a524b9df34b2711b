package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Config records are canonical per
	// derived address, so a duplicate insert is always a caller error.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned by a versioned update or commit when
	// the stored record moved past the expected version. The caller must
	// re-read state and retry; nothing was applied.
	ErrVersionConflict = errors.New("version conflict: stale snapshot")
)
