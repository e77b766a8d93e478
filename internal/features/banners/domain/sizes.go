package domain

import "sort"

const (
	SizeThumbnail = "thumbnail"
	SizeEditImage = "edit_image"
)

// Size is a named variant resolution.
type Size struct {
	Name   string
	Width  int
	Height int
}

var sizes = map[string]Size{
	SizeThumbnail: {Name: SizeThumbnail, Width: 200, Height: 100},
	SizeEditImage: {Name: SizeEditImage, Width: 800, Height: 400},
}

// LookupSize returns the dimensions registered under name.
func LookupSize(name string) (Size, bool) {
	s, ok := sizes[name]
	return s, ok
}

// Sizes lists every registered variant, sorted by name.
func Sizes() []Size {
	out := make([]Size, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
