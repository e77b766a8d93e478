package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"banner-editor/internal/core/blob"
	"banner-editor/internal/core/cache"
	"banner-editor/internal/core/imageproc"
	"banner-editor/internal/features/banners/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResizer returns a fixed payload and counts calls.
type stubResizer struct {
	calls int32
	out   []byte
	err   error
	delay time.Duration
}

func (r *stubResizer) Resize(ctx context.Context, _ []byte, _ string, _, _ int) ([]byte, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.out, nil
}

func newTestStore(t *testing.T, resizer imageproc.Resizer, opts ...Option) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(blob.NewFileSystemStorage(fs), resizer, "/static/", opts...), fs
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func exists(t *testing.T, fs afero.Fs, name string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, "/"+name)
	require.NoError(t, err)
	return ok
}

func TestDirectory(t *testing.T) {
	s, _ := newTestStore(t, &stubResizer{})

	tests := []struct {
		filename string
		want     string
	}{
		{"summer.png", "banners/s/u/7"},
		{"AB.jpg", "banners/A/B/7"},
		{"9lives.gif", "banners/9/l/7"},
		{"_hidden.png", "banners/?/h/7"},
		{"a-b.png", "banners/a/?/7"},
		{"x", "banners/x/?/7"},
		{"ñandu.png", "banners/?/a/7"},
		{"éa.png", "banners/?/a/7"},
		{"aé.png", "banners/a/?/7"},
		{"日本.png", "banners/?/?/7"},
		{"\xffb.png", "banners/?/b/7"},
		{"../../etc/pa.png", "banners/p/a/7"},
		{`C:\Users\me\ok.png`, "banners/o/k/7"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := s.Directory(7, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectory_InvalidFilename(t *testing.T) {
	s, _ := newTestStore(t, &stubResizer{})

	for _, name := range []string{"", ".", "..", "/", "dir/.."} {
		_, err := s.Directory(1, name)
		assert.ErrorIs(t, err, domain.ErrInvalidFilename, name)
	}
}

func TestShardNames(t *testing.T) {
	names := ShardNames()
	assert.Len(t, names, 63)
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "Z")
	assert.Contains(t, names, "0")
	assert.Equal(t, Placeholder, names[len(names)-1])
}

func TestEnsureDirectory_Idempotent(t *testing.T) {
	s, fs := newTestStore(t, &stubResizer{})
	ctx := context.Background()

	dir, err := s.EnsureDirectory(ctx, 3, "banner.png")
	require.NoError(t, err)
	_, err = s.EnsureDirectory(ctx, 3, "banner.png")
	require.NoError(t, err)

	assert.Equal(t, "banners/b/a/3", dir)
	assert.True(t, exists(t, fs, dir))
}

func TestEnsureDirectory_ConcurrentDistinctIDs(t *testing.T) {
	s, fs := newTestStore(t, &stubResizer{})

	var wg sync.WaitGroup
	for id := int64(1); id <= 20; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := s.EnsureDirectory(context.Background(), id, "same.png")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	entries, err := afero.ReadDir(fs, "/banners/s/a")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestStoreOriginal_Overwrites(t *testing.T) {
	s, fs := newTestStore(t, &stubResizer{})
	ctx := context.Background()

	require.NoError(t, s.StoreOriginal(ctx, 1, "promo.png", strings.NewReader("first")))
	require.NoError(t, s.StoreOriginal(ctx, 1, "promo.png", strings.NewReader("second")))

	data, err := afero.ReadFile(fs, "/banners/p/r/1/promo.png")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStoreOriginal_WriteFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := NewStore(blob.NewFileSystemStorage(fs), &stubResizer{}, "/static")

	err := s.StoreOriginal(context.Background(), 1, "promo.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrAssetWriteFailed)
}

func TestGetVariantPath_GeneratesLazily(t *testing.T) {
	resizer := &stubResizer{out: []byte("small")}
	s, fs := newTestStore(t, resizer)
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 12, "promo.png", strings.NewReader("original")))

	assert.False(t, exists(t, fs, "banners/p/r/12/thumbnail/promo.png"))

	got := s.GetVariantPath(ctx, 12, "promo.png", domain.SizeThumbnail)
	assert.Equal(t, "/static/banners/p/r/12/thumbnail/promo.png", got)

	data, err := afero.ReadFile(fs, "/banners/p/r/12/thumbnail/promo.png")
	require.NoError(t, err)
	assert.Equal(t, "small", string(data))

	// A second lookup reuses the cached file.
	assert.Equal(t, got, s.GetVariantPath(ctx, 12, "promo.png", domain.SizeThumbnail))
	assert.Equal(t, int32(1), atomic.LoadInt32(&resizer.calls))
}

func TestGetVariantPath_RealResize(t *testing.T) {
	s, fs := newTestStore(t, imageproc.NewFitResizer())
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 5, "wide.png", bytes.NewReader(pngBytes(t, 1600, 400))))

	got := s.GetVariantPath(ctx, 5, "wide.png", domain.SizeEditImage)
	assert.Equal(t, "/static/banners/w/i/5/edit_image/wide.png", got)

	data, err := afero.ReadFile(fs, "/banners/w/i/5/edit_image/wide.png")
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestGetVariantPath_EscapesPlaceholder(t *testing.T) {
	s, _ := newTestStore(t, &stubResizer{out: []byte("v")})
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 8, "#1 deal.png", strings.NewReader("o")))

	got := s.GetVariantPath(ctx, 8, "#1 deal.png", domain.SizeThumbnail)
	assert.Equal(t, "/static/banners/%3F/1/8/thumbnail/%231%20deal.png", got)
}

func TestGetVariantPath_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown size", func(t *testing.T) {
		s, _ := newTestStore(t, &stubResizer{out: []byte("v")})
		require.NoError(t, s.StoreOriginal(ctx, 1, "a.png", strings.NewReader("o")))
		assert.Empty(t, s.GetVariantPath(ctx, 1, "a.png", "poster"))
	})

	t.Run("missing original", func(t *testing.T) {
		s, fs := newTestStore(t, &stubResizer{out: []byte("v")})
		assert.Empty(t, s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))
		assert.False(t, exists(t, fs, "banners/a/?/1/thumbnail/a.png"))
	})

	t.Run("resize failure", func(t *testing.T) {
		s, fs := newTestStore(t, &stubResizer{err: errors.New("corrupt image")})
		require.NoError(t, s.StoreOriginal(ctx, 1, "a.png", strings.NewReader("o")))
		assert.Empty(t, s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))
		assert.False(t, exists(t, fs, "banners/a/?/1/thumbnail/a.png"))
	})

	t.Run("resize timeout", func(t *testing.T) {
		resizer := &stubResizer{out: []byte("v"), delay: time.Second}
		s, _ := newTestStore(t, resizer, WithResizeTimeout(20*time.Millisecond))
		require.NoError(t, s.StoreOriginal(ctx, 1, "a.png", strings.NewReader("o")))
		assert.Empty(t, s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))

		// The next request retries.
		resizer.delay = 0
		assert.NotEmpty(t, s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))
	})
}

func TestGetVariantPath_ConcurrentRequestsShareGeneration(t *testing.T) {
	resizer := &stubResizer{out: []byte("v"), delay: 50 * time.Millisecond}
	s, _ := newTestStore(t, resizer)
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 1, "a.png", strings.NewReader("o")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotEmpty(t, s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&resizer.calls), int32(2))
}

func TestGetVariantPath_CancelledCallerDoesNotAbortGeneration(t *testing.T) {
	resizer := &stubResizer{out: []byte("v"), delay: 20 * time.Millisecond}
	s, fs := newTestStore(t, resizer)
	require.NoError(t, s.StoreOriginal(context.Background(), 1, "a.png", strings.NewReader("o")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "/static/banners/a/%3F/1/thumbnail/a.png", s.GetVariantPath(ctx, 1, "a.png", domain.SizeThumbnail))
	assert.True(t, exists(t, fs, "banners/a/?/1/thumbnail/a.png"))
}

func TestClearDirectory(t *testing.T) {
	s, fs := newTestStore(t, &stubResizer{out: []byte("v")})
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 4, "old.png", strings.NewReader("o")))
	require.NotEmpty(t, s.GetVariantPath(ctx, 4, "old.png", domain.SizeThumbnail))
	require.NotEmpty(t, s.GetVariantPath(ctx, 4, "old.png", domain.SizeEditImage))

	require.NoError(t, s.ClearDirectory(ctx, 4, "old.png"))

	assert.True(t, exists(t, fs, "banners/o/l/4"))
	entries, err := afero.ReadDir(fs, "/banners/o/l/4")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteAll(t *testing.T) {
	s, fs := newTestStore(t, &stubResizer{out: []byte("v")})
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 9, "gone.png", strings.NewReader("o")))
	require.NotEmpty(t, s.GetVariantPath(ctx, 9, "gone.png", domain.SizeThumbnail))

	require.NoError(t, s.DeleteAll(ctx, 9, "gone.png"))
	assert.False(t, exists(t, fs, "banners/g/o/9"))

	assert.Empty(t, s.GetVariantPath(ctx, 9, "gone.png", domain.SizeThumbnail))

	// Removing a missing directory is fine.
	require.NoError(t, s.DeleteAll(ctx, 9, "gone.png"))
}

func TestMemo_ForgetsDeletedVariants(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()

	resizer := &stubResizer{out: []byte("v")}
	s, _ := newTestStore(t, resizer, WithMemo(adapter))
	ctx := context.Background()
	require.NoError(t, s.StoreOriginal(ctx, 2, "memo.png", strings.NewReader("o")))

	require.NotEmpty(t, s.GetVariantPath(ctx, 2, "memo.png", domain.SizeThumbnail))
	assert.True(t, mr.Exists("banners:variant:banners/m/e/2/thumbnail/memo.png"))

	require.NoError(t, s.DeleteAll(ctx, 2, "memo.png"))
	assert.False(t, mr.Exists("banners:variant:banners/m/e/2/thumbnail/memo.png"))
	assert.Empty(t, s.GetVariantPath(ctx, 2, "memo.png", domain.SizeThumbnail))
}
