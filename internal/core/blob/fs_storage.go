package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

const dirPerm = 0o755

// FileSystemStorage implements Storage on top of an afero filesystem.
type FileSystemStorage struct {
	fs afero.Fs
}

// NewFileSystemStorage wraps fs.
func NewFileSystemStorage(fs afero.Fs) *FileSystemStorage {
	return &FileSystemStorage{fs: fs}
}

// NewLocalStorage stores files below root on the OS filesystem.
func NewLocalStorage(root string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return NewFileSystemStorage(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

func osPath(name string) string {
	return filepath.FromSlash(path.Clean("/" + name))
}

// MakeDir creates dir and its parents.
func (s *FileSystemStorage) MakeDir(_ context.Context, dir string) error {
	if err := s.fs.MkdirAll(osPath(dir), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFile writes to a temporary file next to name and renames it into place.
func (s *FileSystemStorage) WriteFile(_ context.Context, name string, r io.Reader) error {
	target := osPath(name)
	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

// ReadFile returns the file content.
func (s *FileSystemStorage) ReadFile(_ context.Context, name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, osPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// FileExists reports whether name is a regular file.
func (s *FileSystemStorage) FileExists(_ context.Context, name string) (bool, error) {
	info, err := s.fs.Stat(osPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return !info.IsDir(), nil
}

// RemoveTree deletes name recursively.
func (s *FileSystemStorage) RemoveTree(_ context.Context, name string) error {
	if err := s.fs.RemoveAll(osPath(name)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// List returns the entry names of dir. A missing dir has no entries.
func (s *FileSystemStorage) List(_ context.Context, dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, osPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
