package imgcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyImage is returned for zero-length source bytes.
	ErrEmptyImage = errors.New("image is empty")

	// ErrUnsupportedFormat is returned when the bytes are not a
	// recognized or well-formed image container.
	ErrUnsupportedFormat = errors.New("unsupported or corrupt image format")

	// ErrDecompressionBomb is returned when the declared pixel
	// dimensions expand far beyond the compressed size.
	ErrDecompressionBomb = errors.New("image exceeds the pixel expansion limit")

	// ErrOutOfMemory is returned when decoding would require more
	// memory than the configured allocation ceiling.
	ErrOutOfMemory = errors.New("image too large to decode in memory")
)

// TooLargeError is returned when the source byte size exceeds the
// caller's limit. The member must be rejected, never truncated.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image too large (%s > %s)", FormatSize(e.Size), FormatSize(e.Limit))
}

// FormatSize renders a byte count for user-facing messages.
func FormatSize(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	}
}
