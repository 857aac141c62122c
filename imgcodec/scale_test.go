package imgcodec

import (
	"image"
	"image/color"
	"testing"
)

func TestFitWithin(t *testing.T) {
	testCases := []struct {
		w, h       int
		maxW, maxH int
		wantW      int
		wantH      int
	}{
		{100, 50, 10, 10, 10, 5},
		{50, 100, 10, 10, 5, 10},
		{100, 100, 280, 280, 100, 100}, // never upscale
		{280, 280, 280, 280, 280, 280},
		{1000, 1, 10, 10, 10, 1},
		{1, 1000, 10, 10, 1, 10},
		{10000, 2, 10, 10, 10, 1}, // clamped to at least one pixel
	}

	for _, tc := range testCases {
		gotW, gotH := FitWithin(tc.w, tc.h, tc.maxW, tc.maxH)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Fatalf("FitWithin(%d, %d, %d, %d) = %dx%d; want %dx%d",
				tc.w, tc.h, tc.maxW, tc.maxH, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestResample(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	for _, fast := range []bool{false, true} {
		dst := Resample(src, 4, 4, fast)
		if dst.Bounds().Dx() != 4 || dst.Bounds().Dy() != 4 {
			t.Fatalf("fast=%v: unexpected bounds %v", fast, dst.Bounds())
		}
		// Uniform input stays uniform through any kernel.
		if got := dst.RGBAAt(2, 2); got != (color.RGBA{R: 200, G: 100, B: 50, A: 255}) {
			t.Fatalf("fast=%v: unexpected pixel %v", fast, got)
		}
	}
}

func TestResampleImage(t *testing.T) {
	im := &Image{Pixels: image.NewRGBA(image.Rect(0, 0, 100, 50)), Format: "png"}

	down := ResampleImage(im, 10, 10, false)
	if down.Width() != 10 || down.Height() != 5 {
		t.Fatalf("unexpected dimensions %dx%d; want 10x5", down.Width(), down.Height())
	}
	if down.Format != "png" {
		t.Fatalf("unexpected format %q; want png", down.Format)
	}

	// Within the bound: an independent copy comes back, not the
	// original buffer.
	same := ResampleImage(im, 200, 200, false)
	if same.Width() != 100 || same.Height() != 50 {
		t.Fatalf("unexpected dimensions %dx%d; want 100x50", same.Width(), same.Height())
	}
	if same.Pixels == im.Pixels {
		t.Fatalf("ResampleImage must not share the source pixel buffer")
	}
}
