package loader

import (
	"golang.org/x/time/rate"

	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/internal/counter"
	"github.com/zipix/zipix/log"
)

// PreloaderConfig tunes neighbor preloading.
type PreloaderConfig struct {
	// Neighbors is how many members ahead and behind the current index
	// are warmed.
	Neighbors int

	// MaxQueued caps simultaneously outstanding preload tasks.
	MaxQueued int

	// RateLimit caps preload submissions per second.
	RateLimit float64

	// MaxBytes is the byte ceiling applied to preloaded members.
	MaxBytes int64
}

// Preloader issues low-priority loads for images the user is likely to
// look at next. It never duplicates cached or in-flight work and backs
// off entirely when its task budget is spent, so interactive loads
// keep the pool.
type Preloader struct {
	cfg     PreloaderConfig
	coord   *Coordinator
	store   *cache.Store
	limiter *rate.Limiter

	queued counter.Counter
}

// NewPreloader wires a preloader to the coordinator and store.
func NewPreloader(cfg PreloaderConfig, coord *Coordinator, store *cache.Store) *Preloader {
	if cfg.MaxQueued <= 0 {
		cfg.MaxQueued = 3
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	return &Preloader{
		cfg:     cfg,
		coord:   coord,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.MaxQueued),
	}
}

// PreloadAround warms full-resolution neighbors of members[index],
// forward direction first. It returns the number of submitted tasks.
func (p *Preloader) PreloadAround(archivePath string, members []string, index int) int {
	if p.cfg.Neighbors <= 0 || len(members) == 0 {
		return 0
	}

	candidates := make([]int, 0, 2*p.cfg.Neighbors)
	for i := 1; i <= p.cfg.Neighbors; i++ {
		candidates = append(candidates, index+i)
	}
	for i := 1; i <= p.cfg.Neighbors; i++ {
		candidates = append(candidates, index-i)
	}

	submitted := 0
	for _, idx := range candidates {
		if idx < 0 || idx >= len(members) {
			continue
		}
		if p.submit(Request{
			Archive:  archivePath,
			Member:   members[idx],
			MaxBytes: p.cfg.MaxBytes,
			Variant:  cache.OriginalVariant(),
			Priority: Preload,
		}) {
			submitted++
		}
	}
	return submitted
}

// PreloadThumbnail warms one thumbnail, used for the next archive's
// first image while browsing the gallery.
func (p *Preloader) PreloadThumbnail(archivePath, member string, w, h int, maxBytes int64) bool {
	return p.submit(Request{
		Archive:  archivePath,
		Member:   member,
		MaxBytes: maxBytes,
		Variant:  cache.ThumbnailVariant(w, h),
		Priority: Preload,
	})
}

// Queued returns the number of outstanding preload tasks.
func (p *Preloader) Queued() int64 { return p.queued.Load() }

func (p *Preloader) submit(req Request) bool {
	key := req.Key()
	if p.store.Contains(key) || p.store.Contains(req.originalKey()) {
		preloadSkipped.WithLabelValues("cached").Inc()
		return false
	}
	if p.coord.InFlight(key) {
		preloadSkipped.WithLabelValues("in_flight").Inc()
		return false
	}
	if p.queued.Load() >= int64(p.cfg.MaxQueued) {
		preloadSkipped.WithLabelValues("budget").Inc()
		return false
	}
	if !p.limiter.Allow() {
		preloadSkipped.WithLabelValues("rate").Inc()
		return false
	}

	t, err := p.coord.Submit(req)
	if err != nil {
		log.Debugf("preload: submit %s: %s", key, err)
		return false
	}
	preloadSubmitted.Inc()
	p.queued.Inc()
	go func() {
		<-t.Done()
		p.queued.Dec()
	}()
	return true
}
