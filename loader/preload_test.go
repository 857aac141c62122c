package loader

import (
	"fmt"
	"testing"
	"time"

	"github.com/zipix/zipix/cache"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func preloadFixture(t *testing.T, n int) (string, []string) {
	t.Helper()
	members := make(map[string][]byte, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("%03d.png", i+1)
		members[names[i]] = encodePNG(t, 8, 8)
	}
	return buildArchive(t, members), names
}

func TestPreloadAround(t *testing.T) {
	path, names := preloadFixture(t, 5)
	e := newTestEngine(t, Config{Workers: 2}, nil)
	p := NewPreloader(PreloaderConfig{Neighbors: 1, MaxBytes: 1 << 20}, e.coord, e.store)

	if n := p.PreloadAround(path, names, 2); n != 2 {
		t.Fatalf("unexpected submissions %d; want 2", n)
	}

	next := cache.NewKey(path, names[3], cache.OriginalVariant())
	prev := cache.NewKey(path, names[1], cache.OriginalVariant())
	waitFor(t, "neighbors to be cached", func() bool {
		return e.store.Contains(next) && e.store.Contains(prev)
	})

	for _, i := range []int{0, 2, 4} {
		k := cache.NewKey(path, names[i], cache.OriginalVariant())
		if e.store.Contains(k) {
			t.Fatalf("member %s was preloaded beyond the neighbor bound", names[i])
		}
	}
}

func TestPreloadAroundBoundary(t *testing.T) {
	path, names := preloadFixture(t, 3)
	e := newTestEngine(t, Config{Workers: 2}, nil)
	p := NewPreloader(PreloaderConfig{Neighbors: 2, MaxBytes: 1 << 20}, e.coord, e.store)

	// At the first member only forward neighbors exist.
	if n := p.PreloadAround(path, names, 0); n != 2 {
		t.Fatalf("unexpected submissions %d; want 2", n)
	}
	waitFor(t, "forward neighbors to be cached", func() bool {
		return e.store.Contains(cache.NewKey(path, names[1], cache.OriginalVariant())) &&
			e.store.Contains(cache.NewKey(path, names[2], cache.OriginalVariant()))
	})
}

func TestPreloadSkipsCachedAndInFlight(t *testing.T) {
	path, names := preloadFixture(t, 5)
	dec := newGatedDecoder()
	e := newTestEngine(t, Config{Workers: 2}, dec)
	p := NewPreloader(PreloaderConfig{Neighbors: 1, MaxBytes: 1 << 20}, e.coord, e.store)

	if n := p.PreloadAround(path, names, 2); n != 2 {
		t.Fatalf("unexpected submissions %d; want 2", n)
	}
	// Both neighbors are still decoding: nothing new is submitted.
	if n := p.PreloadAround(path, names, 2); n != 0 {
		t.Fatalf("in-flight neighbors were resubmitted: %d", n)
	}
	close(dec.gate)

	next := cache.NewKey(path, names[3], cache.OriginalVariant())
	prev := cache.NewKey(path, names[1], cache.OriginalVariant())
	waitFor(t, "neighbors to be cached", func() bool {
		return e.store.Contains(next) && e.store.Contains(prev)
	})

	// Cached neighbors are skipped too.
	if n := p.PreloadAround(path, names, 2); n != 0 {
		t.Fatalf("cached neighbors were resubmitted: %d", n)
	}
}

func TestPreloadBudget(t *testing.T) {
	path, names := preloadFixture(t, 5)
	dec := newGatedDecoder()
	e := newTestEngine(t, Config{Workers: 2}, dec)
	p := NewPreloader(PreloaderConfig{Neighbors: 2, MaxQueued: 1, MaxBytes: 1 << 20}, e.coord, e.store)

	// Only one task fits the budget; the rest are skipped, not queued.
	if n := p.PreloadAround(path, names, 2); n != 1 {
		t.Fatalf("unexpected submissions %d; want 1", n)
	}
	close(dec.gate)

	waitFor(t, "budget to be released", func() bool {
		return p.queued.Load() == 0
	})
}

func TestPreloadThumbnail(t *testing.T) {
	path, names := preloadFixture(t, 2)
	e := newTestEngine(t, Config{Workers: 2}, nil)
	p := NewPreloader(PreloaderConfig{Neighbors: 1, MaxBytes: 1 << 20}, e.coord, e.store)

	if !p.PreloadThumbnail(path, names[0], 16, 16, 1<<20) {
		t.Fatalf("thumbnail preload was not submitted")
	}

	thumb := cache.NewKey(path, names[0], cache.ThumbnailVariant(16, 16))
	waitFor(t, "thumbnail to be cached", func() bool {
		return e.store.Contains(thumb)
	})

	// The full-resolution decode lands in the cache alongside it.
	if !e.store.Contains(cache.NewKey(path, names[0], cache.OriginalVariant())) {
		t.Fatalf("original decode was not cached")
	}
}
