package imgcodec

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FitWithin returns the largest dimensions not exceeding maxW x maxH
// that preserve the w:h aspect ratio. Images already inside the bound
// are never upscaled.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < rw {
		r = rh
	}
	nw := int(float64(w) * r)
	nh := int(float64(h) * r)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Resample scales src to w x h. Fast mode uses nearest-neighbor;
// otherwise a Catmull-Rom filter is used. Both kernels are
// deterministic.
func Resample(src image.Image, w, h int, fast bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	kernel := xdraw.Interpolator(xdraw.CatmullRom)
	if fast {
		kernel = xdraw.NearestNeighbor
	}
	kernel.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// ResampleImage is the Image-level variant of Resample, used when
// deriving thumbnails from a cached full-resolution decode.
func ResampleImage(im *Image, maxW, maxH int, fast bool) *Image {
	w, h := FitWithin(im.Width(), im.Height(), maxW, maxH)
	if w == im.Width() && h == im.Height() {
		return im.Clone()
	}
	return &Image{Pixels: Resample(im.Pixels, w, h, fast), Format: im.Format}
}
