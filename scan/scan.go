// Package scan classifies zip archives as image-only galleries and
// finds them under configured directories.
package scan

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zipix/zipix/log"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
	".webp": {},
	".ico":  {},
}

// IsImageName reports whether a member name looks like an image file.
// Directory entries never qualify.
func IsImageName(name string) bool {
	if name == "" || strings.HasSuffix(name, "/") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := imageExtensions[ext]
	return ok
}

// Report is the classification result for one archive.
type Report struct {
	Path string

	// Valid is true iff every member of the archive is an image.
	Valid bool

	// Members holds the image member names in natural order. It is nil
	// whenever the archive is invalid: one non-image member discards
	// the whole list.
	Members []string

	ImageCount int
	ModTime    time.Time
	Size       int64
}

// Options bounds what the scanner accepts.
type Options struct {
	// MaxArchiveSize skips archives larger than this. Zero selects the
	// 500 MB default.
	MaxArchiveSize int64

	// MaxEntries rejects archives with more entries than this. Zero
	// selects the 10000 default.
	MaxEntries int

	// Workers is the number of archives analyzed concurrently. Values
	// below 2 select the serial scanner.
	Workers int
}

const (
	defaultMaxArchiveSize = 500 << 20
	defaultMaxEntries     = 10000
)

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxArchiveSize <= 0 {
		out.MaxArchiveSize = defaultMaxArchiveSize
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = defaultMaxEntries
	}
	return out
}

// Scanner finds and classifies image-only archives.
type Scanner interface {
	// Analyze classifies a single archive.
	Analyze(path string) Report

	// ScanDirs walks the given directories and classifies every zip
	// file found.
	ScanDirs(dirs []string) ([]Report, error)
}

// New selects a scanner implementation: concurrent when opts.Workers
// allows it, otherwise the serial fallback. Both produce identical
// reports.
func New(opts Options) Scanner {
	o := opts.withDefaults()
	if o.Workers >= 2 {
		return &parallelScanner{opts: o}
	}
	return &serialScanner{opts: o}
}

// analyzeArchive implements the shared classification policy.
func analyzeArchive(path string, opts Options) Report {
	rep := Report{Path: path}

	fi, err := os.Stat(path)
	if err != nil {
		log.Debugf("scan: cannot stat %q: %s", path, err)
		return rep
	}
	rep.ModTime = fi.ModTime()
	rep.Size = fi.Size()
	if rep.Size > opts.MaxArchiveSize {
		log.Debugf("scan: skipping %q: archive larger than limit", path)
		return rep
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		log.Debugf("scan: cannot open %q: %s", path, err)
		return rep
	}
	defer rc.Close()

	if len(rc.File) > opts.MaxEntries {
		log.Debugf("scan: skipping %q: too many entries (%d)", path, len(rc.File))
		return rep
	}

	members := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !IsImageName(f.Name) {
			// All-or-nothing: a single non-image member disqualifies
			// the archive and its collected members.
			return rep
		}
		members = append(members, f.Name)
	}
	if len(members) == 0 {
		return rep
	}

	sort.Slice(members, func(i, j int) bool {
		return NaturalLess(members[i], members[j])
	})
	rep.Valid = true
	rep.Members = members
	rep.ImageCount = len(members)
	return rep
}

// collectZipPaths walks dirs and returns every .zip file found.
func collectZipPaths(dirs []string) ([]string, error) {
	var paths []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Errorf("scan: walking %q: %s", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".zip") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// NaturalLess orders strings with embedded numbers the way a human
// expects: "2.png" before "10.png".
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			an, arest := takeNumber(a)
			bn, brest := takeNumber(b)
			if an != bn {
				return an < bn
			}
			a, b = arest, brest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func takeNumber(s string) (uint64, string) {
	var n uint64
	i := 0
	for i < len(s) && isDigit(s[i]) {
		// Saturate instead of overflowing on absurd digit runs.
		if n < 1<<55 {
			n = n*10 + uint64(s[i]-'0')
		}
		i++
	}
	return n, s[i:]
}
