package cache

import (
	"fmt"
	"path/filepath"
)

// VariantKind identifies which decoded representation of a member a
// key refers to.
type VariantKind uint8

const (
	// Original is the full-resolution decode.
	Original VariantKind = iota

	// Thumbnail is a bounded small representation for gallery cards
	// and preview panels.
	Thumbnail

	// Resized is an explicitly requested bounded representation other
	// than the standard thumbnail.
	Resized
)

// String returns the kind name.
func (vk VariantKind) String() string {
	switch vk {
	case Original:
		return "original"
	case Thumbnail:
		return "thumbnail"
	case Resized:
		return "resized"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(vk))
	}
}

// Variant is a decoded representation bound. Width and Height are zero
// for Original.
type Variant struct {
	Kind   VariantKind
	Width  int
	Height int
}

// OriginalVariant refers to the full-resolution decode.
func OriginalVariant() Variant {
	return Variant{Kind: Original}
}

// ThumbnailVariant refers to a thumbnail bounded by w x h.
func ThumbnailVariant(w, h int) Variant {
	return Variant{Kind: Thumbnail, Width: w, Height: h}
}

// ResizedVariant refers to a resize bounded by w x h.
func ResizedVariant(w, h int) Variant {
	return Variant{Kind: Resized, Width: w, Height: h}
}

// Key identifies one decoded representation of one archive member.
// Two keys differing only in Variant refer to the same source bytes
// but different decoded pixels.
type Key struct {
	// Archive is the normalized absolute path of the zip file.
	Archive string

	// Member is the entry name inside the archive.
	Member string

	Variant Variant
}

// NewKey builds a key with a normalized archive path so that differing
// spellings of the same file collapse to one cache slot.
func NewKey(archive, member string, v Variant) Key {
	return Key{Archive: NormalizePath(archive), Member: member, Variant: v}
}

// NormalizePath resolves a path to its cleaned absolute form.
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// String returns a readable representation for logs.
func (k Key) String() string {
	if k.Variant.Kind == Original {
		return fmt.Sprintf("%s!%s@original", k.Archive, k.Member)
	}
	return fmt.Sprintf("%s!%s@%s:%dx%d", k.Archive, k.Member, k.Variant.Kind, k.Variant.Width, k.Variant.Height)
}
