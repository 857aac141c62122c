// Package loader turns load requests into decoded images through a
// bounded worker pool, de-duplicating concurrent decodes and routing
// results back to whichever consumer still expects them.
package loader

import (
	"errors"
	"fmt"

	"github.com/zipix/zipix/archive"
	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/imgcodec"
)

// Priority orders dispatch: preload work yields to interactive loads.
type Priority uint8

const (
	Normal Priority = iota
	Preload
)

func (p Priority) String() string {
	if p == Preload {
		return "preload"
	}
	return "normal"
}

// Request asks for one decoded representation of one archive member.
type Request struct {
	Archive string
	Member  string

	// MaxBytes rejects members larger than this. Must be positive;
	// oversized members fail, never truncate.
	MaxBytes int64

	Variant cache.Variant

	// ForceReload bypasses the cache lookup unconditionally. The
	// request still participates in in-flight de-duplication.
	ForceReload bool

	Priority Priority

	// Consumer optionally names the surface this result is for. The
	// router matches by key, so results also reach other surfaces
	// expecting the same key.
	Consumer string
}

// Key returns the cache key this request answers to.
func (r *Request) Key() cache.Key {
	return cache.NewKey(r.Archive, r.Member, r.Variant)
}

// originalKey returns the full-resolution key for the same member,
// which is the unit of decode work.
func (r *Request) originalKey() cache.Key {
	return cache.NewKey(r.Archive, r.Member, cache.OriginalVariant())
}

// ErrorKind classifies load failures for user-facing text. Callers
// must not branch on it for control flow.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindArchiveOpen
	KindMemberNotFound
	KindMemberEmpty
	KindMemberTooLarge
	KindUnsupportedFormat
	KindDecompressionBomb
	KindOutOfMemory
	KindCanceled
	KindInternal
)

// Message returns the user-facing description of the failure class.
func (k ErrorKind) Message() string {
	switch k {
	case KindNone:
		return ""
	case KindArchiveOpen:
		return "Cannot open archive"
	case KindMemberNotFound:
		return "Image not found in archive"
	case KindMemberEmpty:
		return "Image file empty"
	case KindMemberTooLarge:
		return "Image too large"
	case KindUnsupportedFormat:
		return "Invalid image format"
	case KindDecompressionBomb:
		return "Decompression bomb"
	case KindOutOfMemory:
		return "Out of memory"
	case KindCanceled:
		return "Load canceled"
	default:
		return "Load error"
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindArchiveOpen:
		return "archive_open"
	case KindMemberNotFound:
		return "member_not_found"
	case KindMemberEmpty:
		return "member_empty"
	case KindMemberTooLarge:
		return "member_too_large"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindDecompressionBomb:
		return "decompression_bomb"
	case KindOutOfMemory:
		return "out_of_memory"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// classifyError maps archive and codec failures onto the taxonomy.
func classifyError(err error) ErrorKind {
	var openErr *archive.OpenError
	var tooLargeMember *archive.MemberTooLargeError
	var tooLargeImage *imgcodec.TooLargeError

	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &openErr):
		return KindArchiveOpen
	case errors.Is(err, archive.ErrMemberNotFound):
		return KindMemberNotFound
	case errors.Is(err, archive.ErrMemberEmpty), errors.Is(err, imgcodec.ErrEmptyImage):
		return KindMemberEmpty
	case errors.As(err, &tooLargeMember), errors.As(err, &tooLargeImage):
		return KindMemberTooLarge
	case errors.Is(err, imgcodec.ErrDecompressionBomb):
		return KindDecompressionBomb
	case errors.Is(err, imgcodec.ErrOutOfMemory):
		return KindOutOfMemory
	case errors.Is(err, imgcodec.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, errCanceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

var errCanceled = errors.New("load canceled before start")

// Result answers one Request. It always carries the key it answers,
// enabling routing without a reverse lookup.
type Result struct {
	Key      cache.Key
	Consumer string

	// Image is set on success. It is a shared immutable view for
	// Original variants and an independent copy for derived ones.
	Image *imgcodec.Image

	Err  error
	Kind ErrorKind
}

// Success reports whether the load produced an image.
func (r *Result) Success() bool { return r.Err == nil }

// ErrorText renders the failure for display, with detail where the
// underlying error carries sizes.
func (r *Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	switch r.Kind {
	case KindMemberTooLarge:
		return fmt.Sprintf("%s: %s", r.Kind.Message(), r.Err)
	default:
		return r.Kind.Message()
	}
}
