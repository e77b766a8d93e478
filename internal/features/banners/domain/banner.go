package domain

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Banner is one entry of the ordered rotator list.
type Banner struct {
	// ID is assigned by the store on insert and doubles as the asset shard key.
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	// Image is the original uploaded filename, empty when the banner has no image.
	Image   string `json:"image,omitempty"`
	Enabled bool   `json:"enabled"`
	// Position defines render order. Unique across all banners, gaps are expected.
	Position  Position  `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at"`
}

// HasImage reports whether an image is attached.
func (b *Banner) HasImage() bool {
	return b.Image != ""
}

// EnforceImageRule disables a banner that has no image.
func (b *Banner) EnforceImageRule() {
	if !b.HasImage() {
		b.Enabled = false
	}
}

// CleanFilename reduces an uploaded filename to its base name.
// Client paths with either separator are stripped.
func CleanFilename(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	switch name {
	case ".", "..", "/":
		return "", fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	return name, nil
}

// ImageUpload is an uploaded original image.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// CreateInput carries the fields of a new banner.
type CreateInput struct {
	Name    string
	URL     string
	Enabled bool
	Image   *ImageUpload
}

// UpdateInput carries the editable fields of an existing banner.
// A nil Image keeps the current one unless RemoveImage is set.
type UpdateInput struct {
	Name        string
	URL         string
	Enabled     bool
	Image       *ImageUpload
	RemoveImage bool
}

// Direction selects which way a banner moves in the render order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	default:
		return "", ErrInvalidDirection
	}
}
