// Package archive reads image members out of zip files through a
// bounded pool of warm open handles.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
)

// MemberInfo describes one archive entry.
type MemberInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Handle is an open archive reader owned by the pool. Member reads go
// through io.ReaderAt and are safe concurrently; open/close lifecycle
// is the pool's job. Callers must Release every acquired handle.
type Handle struct {
	path string
	rc   *zip.ReadCloser

	index map[string]*zip.File

	mu    sync.Mutex
	refs  int
	dying bool
}

func openHandle(path string) (*Handle, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	// Deflate dominates zip image archives; swap in the faster
	// decompressor.
	rc.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	index := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		index[f.Name] = f
	}
	return &Handle{path: path, rc: rc, index: index, refs: 1}, nil
}

func classifyOpenError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &OpenError{Path: path, Reason: OpenNotFound, Err: err}
	case os.IsPermission(err):
		return &OpenError{Path: path, Reason: OpenPermission, Err: err}
	default:
		return &OpenError{Path: path, Reason: OpenCorrupt, Err: err}
	}
}

// Path returns the archive path this handle reads.
func (h *Handle) Path() string { return h.path }

// Members lists all non-directory entries in archive order.
func (h *Handle) Members() []MemberInfo {
	out := make([]MemberInfo, 0, len(h.rc.File))
	for _, f := range h.rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		out = append(out, MemberInfo{
			Name:     f.Name,
			Size:     int64(f.UncompressedSize64),
			Modified: f.Modified,
		})
	}
	return out
}

// Stat returns metadata for one member.
func (h *Handle) Stat(name string) (MemberInfo, error) {
	f, ok := h.index[name]
	if !ok {
		return MemberInfo{}, fmt.Errorf("%w: %q", ErrMemberNotFound, name)
	}
	return MemberInfo{
		Name:     f.Name,
		Size:     int64(f.UncompressedSize64),
		Modified: f.Modified,
	}, nil
}

// ReadMember extracts one member's bytes. Members whose declared
// uncompressed size exceeds maxBytes are rejected before any read, and
// the actual decompressed stream is re-checked against the declaration
// so lying headers cannot smuggle oversized data.
func (h *Handle) ReadMember(name string, maxBytes int64) ([]byte, error) {
	f, ok := h.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, name)
	}

	declared := int64(f.UncompressedSize64)
	if declared == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMemberEmpty, name)
	}
	if maxBytes > 0 && declared > maxBytes {
		return nil, &MemberTooLargeError{Member: name, Size: declared, Limit: maxBytes}
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open member %q: %w", name, err)
	}
	defer r.Close()

	buf := make([]byte, 0, declared)
	limited := io.LimitReader(r, declared+1)
	buf, err = readAll(buf, limited)
	if err != nil {
		return nil, fmt.Errorf("cannot read member %q: %w", name, err)
	}
	if int64(len(buf)) > declared {
		return nil, &MemberTooLargeError{Member: name, Size: int64(len(buf)), Limit: declared}
	}
	return buf, nil
}

func readAll(buf []byte, r io.Reader) ([]byte, error) {
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}

// Release drops the caller's reference. The underlying reader closes
// once the pool has discarded the handle and the last reference is
// gone; a read in progress therefore never races a close.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.dying && h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.rc.Close()
	}
}

// retain adds a reference. Only the pool calls this, under its lock.
func (h *Handle) retain() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// discard drops the pool's own reference and marks the handle as no
// longer pooled. It closes immediately when no reader holds it,
// otherwise the last Release closes it.
func (h *Handle) discard() {
	h.mu.Lock()
	h.dying = true
	h.refs--
	closeNow := h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.rc.Close()
	}
}
