// Package imageproc produces resized copies of uploaded images.
package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Resizer scales encoded image bytes to fit within width x height.
// filename is a format hint; the output keeps the source format.
type Resizer interface {
	Resize(ctx context.Context, src []byte, filename string, width, height int) ([]byte, error)
}

// FitResizer scales images down to fit the target box, preserving aspect ratio.
// Images already smaller than the box are re-encoded unchanged.
type FitResizer struct {
	jpegQuality int
}

// NewFitResizer creates a FitResizer.
func NewFitResizer() *FitResizer {
	return &FitResizer{jpegQuality: 90}
}

type result struct {
	data []byte
	err  error
}

// Resize runs the CPU work in a goroutine so the caller's deadline is honoured.
// An abandoned resize finishes in the background and its result is dropped.
func (r *FitResizer) Resize(ctx context.Context, src []byte, filename string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resize aborted: %w", err)
	}

	done := make(chan result, 1)
	go func() {
		data, err := r.resize(src, filename, width, height)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resize aborted: %w", ctx.Err())
	case res := <-done:
		return res.data, res.err
	}
}

func (r *FitResizer) resize(src []byte, filename string, width, height int) ([]byte, error) {
	format, err := detectFormat(src, filename)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	fitted := imaging.Fit(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, format, imaging.JPEGQuality(r.jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// detectFormat trusts the filename extension first and falls back to sniffing the content.
func detectFormat(src []byte, filename string) (imaging.Format, error) {
	if format, err := imaging.FormatFromFilename(filename); err == nil {
		return format, nil
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, fmt.Errorf("unrecognised image format for %s: %w", filename, err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return 0, fmt.Errorf("unsupported image format %s: %w", name, err)
	}
	return format, nil
}
