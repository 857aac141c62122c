package imgcodec

import (
	"image"
	"image/draw"
)

// entryOverhead approximates per-image bookkeeping outside the pixel
// buffer (headers, palette, struct fields).
const entryOverhead = 1024

// Image is a fully decoded image. The pixel data is treated as
// immutable once constructed; consumers that need to mutate pixels
// must Clone first.
type Image struct {
	// Pixels holds the decoded pixel buffer.
	Pixels image.Image

	// Format is the source container format ("jpeg", "png", ...).
	Format string
}

// Width returns the pixel width.
func (im *Image) Width() int {
	return im.Pixels.Bounds().Dx()
}

// Height returns the pixel height.
func (im *Image) Height() int {
	return im.Pixels.Bounds().Dy()
}

// Materialized reports whether the image holds decoded pixels with a
// positive area. Only materialized images may be cached.
func (im *Image) Materialized() bool {
	return im != nil && im.Pixels != nil && im.Width() > 0 && im.Height() > 0
}

// EstimatedBytes returns the approximate memory held by the pixel
// buffer: width * height * channels * bytes-per-channel plus a fixed
// overhead.
func (im *Image) EstimatedBytes() int64 {
	if im == nil || im.Pixels == nil {
		return entryOverhead
	}
	w, h := int64(im.Width()), int64(im.Height())
	return w*h*bytesPerPixel(im.Pixels) + entryOverhead
}

func bytesPerPixel(img image.Image) int64 {
	switch img.(type) {
	case *image.Gray:
		return 1
	case *image.Gray16:
		return 2
	case *image.Paletted:
		return 1
	case *image.YCbCr:
		return 3
	case *image.NYCbCrA:
		return 4
	case *image.CMYK:
		return 4
	case *image.RGBA64, *image.NRGBA64:
		return 8
	default:
		// RGBA, NRGBA and unknown implementations.
		return 4
	}
}

// Clone returns an independent copy of the image with its own pixel
// buffer.
func (im *Image) Clone() *Image {
	b := im.Pixels.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, im.Pixels, b.Min, draw.Src)
	return &Image{Pixels: dst, Format: im.Format}
}
