package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when reading an object that is not stored.
var ErrNotExist = errors.New("blob: object does not exist")

// Storage defines the file operations the asset layer needs.
// Names are slash-separated and relative to the storage root.
// This is a port that can be implemented by a local filesystem or an object store.
type Storage interface {
	// MakeDir creates dir and any missing parents. It is idempotent.
	MakeDir(ctx context.Context, dir string) error

	// WriteFile stores the content of r under name, replacing any existing object.
	// A failed write never leaves a partial object behind.
	WriteFile(ctx context.Context, name string, r io.Reader) error

	// ReadFile returns the content stored under name or ErrNotExist.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// FileExists reports whether a regular object is stored under name.
	FileExists(ctx context.Context, name string) (bool, error)

	// RemoveTree deletes name and everything below it. Missing names are not an error.
	RemoveTree(ctx context.Context, name string) error

	// List returns the names of the direct children of dir.
	List(ctx context.Context, dir string) ([]string, error)
}
