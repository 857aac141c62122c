package imgcodec

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// exifOrientation extracts the EXIF orientation tag (1..8) from jpeg
// bytes. Missing or unreadable metadata counts as the identity
// orientation.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation normalizes a decoded image according to the EXIF
// orientation value so that callers always see upright pixels.
func applyOrientation(src image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return transformPixels(src, flipH)
	case 3:
		return transformPixels(src, rotate180)
	case 4:
		return transformPixels(src, flipV)
	case 5:
		return transformPixels(src, transpose)
	case 6:
		return transformPixels(src, rotate90)
	case 7:
		return transformPixels(src, transverse)
	case 8:
		return transformPixels(src, rotate270)
	default:
		return src
	}
}

// mapping computes the destination size for a source size and maps a
// source coordinate to its destination coordinate.
type mapping struct {
	swap bool
	at   func(x, y, w, h int) (int, int)
}

var (
	flipH      = mapping{at: func(x, y, w, h int) (int, int) { return w - 1 - x, y }}
	flipV      = mapping{at: func(x, y, w, h int) (int, int) { return x, h - 1 - y }}
	rotate180  = mapping{at: func(x, y, w, h int) (int, int) { return w - 1 - x, h - 1 - y }}
	transpose  = mapping{swap: true, at: func(x, y, w, h int) (int, int) { return y, x }}
	transverse = mapping{swap: true, at: func(x, y, w, h int) (int, int) { return h - 1 - y, w - 1 - x }}
	rotate90   = mapping{swap: true, at: func(x, y, w, h int) (int, int) { return h - 1 - y, x }}
	rotate270  = mapping{swap: true, at: func(x, y, w, h int) (int, int) { return y, w - 1 - x }}
)

func transformPixels(src image.Image, m mapping) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if m.swap {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := m.at(x, y, w, h)
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
