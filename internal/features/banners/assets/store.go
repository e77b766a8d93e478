package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"banner-editor/internal/core/blob"
	"banner-editor/internal/core/imageproc"
	"banner-editor/internal/core/logger"
	"banner-editor/internal/features/banners/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RootDir is the storage directory holding every banner shard.
	RootDir = "banners"
	// Placeholder replaces filename characters that are not ASCII letters or digits.
	Placeholder = "?"

	defaultResizeTimeout = 10 * time.Second
	memoKeyPrefix        = "banners:variant:"
	memoTTL              = 24 * time.Hour
)

// Memo remembers which variants already exist so repeated lookups skip the storage round trip.
// cache.Cache satisfies it.
type Memo interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Store implements ports.AssetStore on top of a blob.Storage.
type Store struct {
	storage       blob.Storage
	resizer       imageproc.Resizer
	publicPrefix  string
	resizeTimeout time.Duration
	memo          Memo
	flights       singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithResizeTimeout bounds a single variant generation.
func WithResizeTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.resizeTimeout = d
		}
	}
}

// WithMemo enables the variant existence memo.
func WithMemo(m Memo) Option {
	return func(s *Store) {
		s.memo = m
	}
}

// NewStore creates a Store. publicPrefix is the URL prefix the storage root is served under.
func NewStore(storage blob.Storage, resizer imageproc.Resizer, publicPrefix string, opts ...Option) *Store {
	s := &Store{
		storage:       storage,
		resizer:       resizer,
		publicPrefix:  strings.TrimRight(publicPrefix, "/"),
		resizeTimeout: defaultResizeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShardChar maps a filename character to its shard directory name.
func ShardChar(r rune) string {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return string(r)
	default:
		return Placeholder
	}
}

// ShardNames lists every first-level shard directory under RootDir.
func ShardNames() []string {
	names := make([]string, 0, 63)
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		names = append(names, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		names = append(names, string(c))
	}
	return append(names, Placeholder)
}

// shards returns the shard names of the first two characters of name.
// A missing character maps to Placeholder.
func shards(name string) (string, string) {
	out := [2]string{Placeholder, Placeholder}
	for i, r := range []rune(name) {
		if i == len(out) {
			break
		}
		out[i] = ShardChar(r)
	}
	return out[0], out[1]
}

func directory(id int64, name string) string {
	c1, c2 := shards(name)
	return path.Join(RootDir, c1, c2, strconv.FormatInt(id, 10))
}

// Directory returns banners/<c1>/<c2>/<id> for the image filename.
func (s *Store) Directory(id int64, filename string) (string, error) {
	name, err := domain.CleanFilename(filename)
	if err != nil {
		return "", err
	}
	return directory(id, name), nil
}

// EnsureDirectory creates the banner directory and returns it.
func (s *Store) EnsureDirectory(ctx context.Context, id int64, filename string) (string, error) {
	dir, err := s.Directory(id, filename)
	if err != nil {
		return "", err
	}
	if err := s.storage.MakeDir(ctx, dir); err != nil {
		return "", fmt.Errorf("assets: failed to create %s: %w", dir, errors.Join(domain.ErrAssetWriteFailed, err))
	}
	return dir, nil
}

// StoreOriginal writes the uploaded image into the banner directory.
func (s *Store) StoreOriginal(ctx context.Context, id int64, filename string, r io.Reader) error {
	dir, err := s.EnsureDirectory(ctx, id, filename)
	if err != nil {
		return err
	}
	name := mustClean(filename)
	target := path.Join(dir, name)
	if err := s.storage.WriteFile(ctx, target, r); err != nil {
		return fmt.Errorf("assets: failed to store %s: %w", target, errors.Join(domain.ErrAssetWriteFailed, err))
	}
	s.forget(ctx, dir, name)
	return nil
}

// ClearDirectory removes everything inside the banner directory but keeps the directory.
func (s *Store) ClearDirectory(ctx context.Context, id int64, filename string) error {
	dir, err := s.Directory(id, filename)
	if err != nil {
		return err
	}

	entries, err := s.storage.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("assets: failed to list %s: %w", dir, errors.Join(domain.ErrAssetWriteFailed, err))
	}
	for _, entry := range entries {
		if err := s.storage.RemoveTree(ctx, path.Join(dir, entry)); err != nil {
			return fmt.Errorf("assets: failed to clear %s: %w", dir, errors.Join(domain.ErrAssetWriteFailed, err))
		}
	}
	s.forget(ctx, dir, append(entries, mustClean(filename))...)
	return nil
}

// DeleteAll removes the banner directory with the original and every variant.
func (s *Store) DeleteAll(ctx context.Context, id int64, filename string) error {
	dir, err := s.Directory(id, filename)
	if err != nil {
		return err
	}
	if err := s.storage.RemoveTree(ctx, dir); err != nil {
		return fmt.Errorf("assets: failed to delete %s: %w", dir, errors.Join(domain.ErrAssetWriteFailed, err))
	}
	s.forget(ctx, dir, mustClean(filename))
	return nil
}

// GetVariantPath returns the public path of the resized image, generating it on first use.
// Any failure is logged and reported as "".
func (s *Store) GetVariantPath(ctx context.Context, id int64, filename, sizeName string) string {
	log := logger.ForBanner(id).With(zap.String("size", sizeName))

	size, ok := domain.LookupSize(sizeName)
	if !ok {
		log.Warn("Unknown image size", zap.Error(domain.ErrUnknownSize))
		return ""
	}
	name, err := domain.CleanFilename(filename)
	if err != nil {
		log.Warn("Invalid image filename", zap.Error(err))
		return ""
	}

	dir := directory(id, name)
	variant := path.Join(dir, size.Name, name)
	if s.remembered(ctx, variant) {
		return s.publicPath(variant)
	}

	// The shared generation outlives a cancelled caller; resizeTimeout bounds it.
	genCtx := context.WithoutCancel(ctx)
	_, err, _ = s.flights.Do(variant, func() (interface{}, error) {
		if err := s.generate(genCtx, dir, name, variant, size); err != nil {
			return nil, err
		}
		s.remember(genCtx, variant)
		return nil, nil
	})
	if err != nil {
		log.Error("Failed to prepare image variant",
			zap.String("variant", variant),
			zap.Error(errors.Join(domain.ErrVariantGenerationFailed, err)),
		)
		return ""
	}
	return s.publicPath(variant)
}

func (s *Store) generate(parent context.Context, dir, name, variant string, size domain.Size) error {
	ctx, cancel := context.WithTimeout(parent, s.resizeTimeout)
	defer cancel()

	exists, err := s.storage.FileExists(ctx, variant)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	src, err := s.storage.ReadFile(ctx, path.Join(dir, name))
	if err != nil {
		return err
	}
	if err := s.storage.MakeDir(ctx, path.Join(dir, size.Name)); err != nil {
		return err
	}

	out, err := s.resizer.Resize(ctx, src, name, size.Width, size.Height)
	if err != nil {
		return err
	}

	logger.Get().Debug("Generated image variant", zap.String("variant", variant), zap.Int("bytes", len(out)))
	return s.storage.WriteFile(ctx, variant, bytes.NewReader(out))
}

func (s *Store) publicPath(variant string) string {
	segments := strings.Split(variant, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicPrefix + "/" + strings.Join(segments, "/")
}

func (s *Store) remembered(ctx context.Context, variant string) bool {
	if s.memo == nil {
		return false
	}
	_, err := s.memo.Get(ctx, memoKeyPrefix+variant)
	return err == nil
}

func (s *Store) remember(ctx context.Context, variant string) {
	if s.memo == nil {
		return
	}
	if err := s.memo.Set(ctx, memoKeyPrefix+variant, []byte("1"), memoTTL); err != nil {
		logger.Get().Warn("Failed to remember image variant", zap.String("variant", variant), zap.Error(err))
	}
}

// forget drops memo entries of every size for the given image names in dir.
func (s *Store) forget(ctx context.Context, dir string, names ...string) {
	if s.memo == nil {
		return
	}
	sizes := domain.Sizes()
	keys := make([]string, 0, len(names)*len(sizes))
	for _, name := range names {
		for _, size := range sizes {
			keys = append(keys, memoKeyPrefix+path.Join(dir, size.Name, name))
		}
	}
	if err := s.memo.Delete(ctx, keys...); err != nil {
		logger.Get().Warn("Failed to forget image variants", zap.String("dir", dir), zap.Error(err))
	}
}

// mustClean is domain.CleanFilename for names already validated by Directory.
func mustClean(filename string) string {
	name, _ := domain.CleanFilename(filename)
	return name
}
