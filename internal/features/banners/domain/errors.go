package domain

import "errors"

var (
	// ErrNotFound is returned for an unknown banner id.
	ErrNotFound = errors.New("banner not found")
	// ErrPersistenceUnavailable is returned when a store operation failed.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrAssetWriteFailed is returned when an image could not be written.
	ErrAssetWriteFailed = errors.New("asset write failed")
	// ErrPrecisionExhausted is returned when a move needs a finer position than the scale allows.
	ErrPrecisionExhausted = errors.New("position precision exhausted")
	// ErrVariantGenerationFailed marks a failed resize. It never reaches callers of the service.
	ErrVariantGenerationFailed = errors.New("variant generation failed")
	// ErrPositionConflict is returned when another writer already holds the computed position.
	ErrPositionConflict = errors.New("position conflict")
	// ErrLockUnavailable is returned when a record lock could not be acquired in time.
	ErrLockUnavailable = errors.New("lock unavailable")
	ErrInvalidFilename  = errors.New("invalid image filename")
	ErrUnknownSize      = errors.New("unknown image size")
	ErrInvalidDirection = errors.New("invalid move direction")
)
