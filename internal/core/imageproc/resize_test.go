package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitResizer_Resize(t *testing.T) {
	r := NewFitResizer()
	src := encodePNG(t, 400, 100)

	out, err := r.Resize(context.Background(), src, "wide.png", 200, 200)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestFitResizer_Deterministic(t *testing.T) {
	r := NewFitResizer()
	src := encodePNG(t, 64, 64)

	a, err := r.Resize(context.Background(), src, "x.png", 32, 32)
	require.NoError(t, err)
	b, err := r.Resize(context.Background(), src, "x.png", 32, 32)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFitResizer_FormatFromContent(t *testing.T) {
	r := NewFitResizer()
	src := encodePNG(t, 50, 50)

	out, err := r.Resize(context.Background(), src, "no-extension", 10, 10)
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestFitResizer_Errors(t *testing.T) {
	r := NewFitResizer()

	_, err := r.Resize(context.Background(), []byte("not an image"), "x.png", 10, 10)
	assert.Error(t, err)

	_, err = r.Resize(context.Background(), []byte("not an image"), "x.unknown", 10, 10)
	assert.Error(t, err)

	_, err = r.Resize(context.Background(), encodePNG(t, 4, 4), "x.png", 0, 10)
	assert.Error(t, err)
}

func TestFitResizer_ContextDeadline(t *testing.T) {
	r := NewFitResizer()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := r.Resize(ctx, encodePNG(t, 800, 800), "big.png", 100, 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
