package archive

import (
	"errors"
	"fmt"

	"github.com/zipix/zipix/imgcodec"
)

// OpenReason classifies why an archive could not be opened.
type OpenReason uint8

const (
	OpenNotFound OpenReason = iota
	OpenCorrupt
	OpenPermission
)

func (r OpenReason) String() string {
	switch r {
	case OpenNotFound:
		return "not found"
	case OpenCorrupt:
		return "not a valid zip archive"
	case OpenPermission:
		return "permission denied"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// OpenError reports a failed archive open. The pool never retries; the
// next Acquire attempts a fresh open.
type OpenError struct {
	Path   string
	Reason OpenReason
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open archive %q: %s", e.Path, e.Reason)
}

func (e *OpenError) Unwrap() error { return e.Err }

var (
	// ErrMemberNotFound is returned when the named entry does not
	// exist in the archive.
	ErrMemberNotFound = errors.New("member not found in archive")

	// ErrMemberEmpty is returned for zero-byte members.
	ErrMemberEmpty = errors.New("member is empty")

	// ErrPoolClosed is returned by Acquire after CloseAll.
	ErrPoolClosed = errors.New("archive pool is closed")
)

// MemberTooLargeError is returned when a member's size exceeds the
// caller's byte ceiling. Oversized members fail, never truncate.
type MemberTooLargeError struct {
	Member string
	Size   int64
	Limit  int64
}

func (e *MemberTooLargeError) Error() string {
	return fmt.Sprintf("member %q too large (%s > %s)",
		e.Member, imgcodec.FormatSize(e.Size), imgcodec.FormatSize(e.Limit))
}
