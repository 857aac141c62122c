package scan

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// serialScanner analyzes archives one at a time. It is the portable
// fallback used when concurrency is disabled.
type serialScanner struct {
	opts Options
}

func (s *serialScanner) Analyze(path string) Report {
	return analyzeArchive(path, s.opts)
}

func (s *serialScanner) ScanDirs(dirs []string) ([]Report, error) {
	paths, err := collectZipPaths(dirs)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(paths))
	for _, p := range paths {
		reports = append(reports, analyzeArchive(p, s.opts))
	}
	return reports, nil
}

// parallelScanner fans archive analysis out over a bounded worker
// group. Reports keep the discovery order regardless of completion
// order.
type parallelScanner struct {
	opts Options
}

func (s *parallelScanner) Analyze(path string) Report {
	return analyzeArchive(path, s.opts)
}

func (s *parallelScanner) ScanDirs(dirs []string) ([]Report, error) {
	paths, err := collectZipPaths(dirs)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, len(paths))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			rep := analyzeArchive(p, s.opts)
			mu.Lock()
			reports[i] = rep
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
