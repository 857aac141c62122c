package imgcodec

import (
	"bytes"
	"fmt"
	"image"

	// Container format registrations.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxPixels bounds width*height before any pixel buffer is
	// allocated. Matches the conventional decompression-bomb threshold
	// of desktop image viewers.
	DefaultMaxPixels = 178956970

	// DefaultMaxAllocBytes bounds the decoded pixel buffer size.
	DefaultMaxAllocBytes = 1 << 30
)

// DecodeOptions controls a single decode.
type DecodeOptions struct {
	// MaxBytes rejects source byte slices larger than this. Must be
	// positive.
	MaxBytes int64

	// TargetWidth and TargetHeight bound the decoded result,
	// preserving aspect ratio. Zero keeps the original resolution.
	TargetWidth  int
	TargetHeight int

	// Fast selects nearest-neighbor resampling instead of the
	// high-quality filter.
	Fast bool
}

// Decoder turns raw archive-member bytes into a decoded Image.
// Implementations must be safe for concurrent use and deterministic:
// decoding the same bytes with the same options yields pixel-identical
// output.
type Decoder interface {
	Decode(data []byte, opts DecodeOptions) (*Image, error)
}

// StdDecoder decodes jpeg, png, gif, bmp, tiff and webp containers,
// applies jpeg EXIF orientation and resamples to the requested bound.
type StdDecoder struct {
	// MaxPixels rejects images whose declared dimensions exceed this
	// product before decoding.
	MaxPixels int64

	// MaxAllocBytes rejects images whose decoded buffer estimate
	// exceeds this bound.
	MaxAllocBytes int64
}

// NewStdDecoder returns a decoder with the default safety limits.
func NewStdDecoder() *StdDecoder {
	return &StdDecoder{
		MaxPixels:     DefaultMaxPixels,
		MaxAllocBytes: DefaultMaxAllocBytes,
	}
}

// Decode implements Decoder.
func (d *StdDecoder) Decode(data []byte, opts DecodeOptions) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, &TooLargeError{Size: int64(len(data)), Limit: opts.MaxBytes}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	pixels := int64(cfg.Width) * int64(cfg.Height)
	if pixels > d.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrDecompressionBomb, cfg.Width, cfg.Height)
	}
	// Worst-case 8 bytes per pixel (16-bit RGBA).
	if pixels*8 > d.MaxAllocBytes {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutOfMemory, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}

	if format == "jpeg" {
		if o := exifOrientation(data); o > 1 {
			src = applyOrientation(src, o)
		}
	}

	if opts.TargetWidth > 0 && opts.TargetHeight > 0 {
		w, h := FitWithin(src.Bounds().Dx(), src.Bounds().Dy(), opts.TargetWidth, opts.TargetHeight)
		if w != src.Bounds().Dx() || h != src.Bounds().Dy() {
			src = Resample(src, w, h, opts.Fast)
		}
	}

	return &Image{Pixels: src, Format: format}, nil
}
