package imgcodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/zipix/zipix/log"
)

func TestMain(m *testing.M) {
	log.SuppressOutput(true)
	retCode := m.Run()
	log.SuppressOutput(false)
	os.Exit(retCode)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("cannot encode png: %s", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	d := NewStdDecoder()
	data := encodePNG(t, 64, 32)

	im, err := d.Decode(data, DecodeOptions{MaxBytes: int64(len(data))})
	if err != nil {
		t.Fatalf("cannot decode: %s", err)
	}
	if im.Format != "png" {
		t.Fatalf("unexpected format %q; want png", im.Format)
	}
	if im.Width() != 64 || im.Height() != 32 {
		t.Fatalf("unexpected dimensions %dx%d; want 64x32", im.Width(), im.Height())
	}
	if !im.Materialized() {
		t.Fatalf("decoded image must be materialized")
	}
}

func TestDecodeDeterministic(t *testing.T) {
	d := NewStdDecoder()
	data := encodePNG(t, 16, 16)
	opts := DecodeOptions{MaxBytes: 1 << 20, TargetWidth: 8, TargetHeight: 8}

	a, err := d.Decode(data, opts)
	if err != nil {
		t.Fatalf("cannot decode: %s", err)
	}
	b, err := d.Decode(data, opts)
	if err != nil {
		t.Fatalf("cannot decode: %s", err)
	}

	if a.Width() != b.Width() || a.Height() != b.Height() {
		t.Fatalf("repeated decode changed dimensions: %dx%d vs %dx%d",
			a.Width(), a.Height(), b.Width(), b.Height())
	}
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			if a.Pixels.At(x, y) != b.Pixels.At(x, y) {
				t.Fatalf("repeated decode changed pixel (%d,%d)", x, y)
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	d := NewStdDecoder()
	valid := encodePNG(t, 8, 8)

	if _, err := d.Decode(nil, DecodeOptions{MaxBytes: 1024}); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("got %v; want ErrEmptyImage", err)
	}

	var tooLarge *TooLargeError
	_, err := d.Decode(valid, DecodeOptions{MaxBytes: 10})
	if !errors.As(err, &tooLarge) {
		t.Fatalf("got %v; want TooLargeError", err)
	}
	if tooLarge.Limit != 10 || tooLarge.Size != int64(len(valid)) {
		t.Fatalf("unexpected limit error: %+v", tooLarge)
	}

	_, err = d.Decode([]byte("definitely not an image"), DecodeOptions{MaxBytes: 1024})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v; want ErrUnsupportedFormat", err)
	}

	// Truncated container: the header parses but the pixel data is gone.
	_, err = d.Decode(valid[:len(valid)/2], DecodeOptions{MaxBytes: 1024})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v; want ErrUnsupportedFormat for truncated data", err)
	}
}

func TestDecodePixelLimits(t *testing.T) {
	data := encodePNG(t, 100, 100)

	d := &StdDecoder{MaxPixels: 5000, MaxAllocBytes: DefaultMaxAllocBytes}
	if _, err := d.Decode(data, DecodeOptions{MaxBytes: 1 << 20}); !errors.Is(err, ErrDecompressionBomb) {
		t.Fatalf("got %v; want ErrDecompressionBomb", err)
	}

	d = &StdDecoder{MaxPixels: DefaultMaxPixels, MaxAllocBytes: 10000}
	if _, err := d.Decode(data, DecodeOptions{MaxBytes: 1 << 20}); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("got %v; want ErrOutOfMemory", err)
	}

	// The limits are pre-decode checks: within them, decode succeeds.
	d = &StdDecoder{MaxPixels: 10000, MaxAllocBytes: 80000}
	if _, err := d.Decode(data, DecodeOptions{MaxBytes: 1 << 20}); err != nil {
		t.Fatalf("cannot decode within limits: %s", err)
	}
}

func TestDecodeWithTarget(t *testing.T) {
	d := NewStdDecoder()
	data := encodePNG(t, 100, 50)

	im, err := d.Decode(data, DecodeOptions{MaxBytes: 1 << 20, TargetWidth: 10, TargetHeight: 10})
	if err != nil {
		t.Fatalf("cannot decode: %s", err)
	}
	if im.Width() != 10 || im.Height() != 5 {
		t.Fatalf("unexpected dimensions %dx%d; want 10x5", im.Width(), im.Height())
	}

	// Already within the bound: no upscale happens.
	im, err = d.Decode(data, DecodeOptions{MaxBytes: 1 << 20, TargetWidth: 500, TargetHeight: 500})
	if err != nil {
		t.Fatalf("cannot decode: %s", err)
	}
	if im.Width() != 100 || im.Height() != 50 {
		t.Fatalf("unexpected dimensions %dx%d; want the original 100x50", im.Width(), im.Height())
	}
}
