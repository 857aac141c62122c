// Package cache holds decoded images keyed by (archive, member,
// variant) under a capacity bound with a pluggable eviction strategy.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zipix/zipix/imgcodec"
	"github.com/zipix/zipix/log"
)

// StrategyKind selects the eviction strategy.
type StrategyKind string

const (
	LRU      StrategyKind = "lru"
	LFU      StrategyKind = "lfu"
	Adaptive StrategyKind = "adaptive"
)

var (
	// ErrInvalidCapacity reports a cache misconfiguration. This is a
	// programming-contract violation, not a runtime condition.
	ErrInvalidCapacity = errors.New("cache capacity must be positive")

	// ErrNotMaterialized is returned when a put carries no decoded
	// pixels. Such values are refused, never cached.
	ErrNotMaterialized = errors.New("refusing to cache image without materialized pixels")
)

// EvictionCallback observes entries leaving the store. It runs under
// the store lock and must not call back into the store.
type EvictionCallback func(key Key, img *imgcodec.Image)

// Config constructs a Store.
type Config struct {
	// Name labels log lines and metrics.
	Name string

	Capacity int
	Strategy StrategyKind

	// MaxMemory is the byte budget enforced by the lfu strategy.
	// Zero disables it.
	MaxMemory int64

	// Adaptive strategy bounds.
	AdaptiveMinCapacity int
	AdaptiveMaxCapacity int
	AdaptiveStep        int
	AdaptiveAdjustEvery int

	OnEvict EvictionCallback
}

// strategy is the store-internal eviction policy. Implementations are
// not thread-safe; the store serializes all access.
type strategy interface {
	name() string
	capacity() int
	len() int
	contains(k Key) bool
	get(k Key) (*entry, bool)
	peek(k Key) (*entry, bool)
	put(e *entry) []*entry
	setCapacity(n int) []*entry
	entries() []*entry
	clear()
	observe(hitRate float64)
}

// Store is a thread-safe capacity-bounded map from Key to decoded
// image. All mutating operations execute under one lock; decode work
// never happens under it.
type Store struct {
	mu    sync.Mutex
	strat strategy
	cfg   Config

	hits      uint64
	misses    uint64
	evictions uint64
	memory    int64
}

// New constructs a Store. A non-positive capacity is a contract
// violation.
func New(cfg Config) (*Store, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.Name == "" {
		cfg.Name = "images"
	}
	applyAdaptiveDefaults(&cfg)

	s := &Store{cfg: cfg}
	s.strat = s.newStrategy(cfg.Strategy, cfg.Capacity)
	return s, nil
}

func applyAdaptiveDefaults(cfg *Config) {
	if cfg.AdaptiveMinCapacity <= 0 {
		cfg.AdaptiveMinCapacity = 10
	}
	if cfg.AdaptiveMaxCapacity < cfg.AdaptiveMinCapacity {
		cfg.AdaptiveMaxCapacity = 200
	}
	if cfg.AdaptiveStep <= 0 {
		cfg.AdaptiveStep = 5
	}
	if cfg.AdaptiveAdjustEvery <= 0 {
		cfg.AdaptiveAdjustEvery = 10
	}
}

func (s *Store) newStrategy(kind StrategyKind, capacity int) strategy {
	switch kind {
	case LFU:
		return newLFU(capacity, s.cfg.MaxMemory)
	case Adaptive:
		return newAdaptive(capacity, s.cfg.AdaptiveMinCapacity, s.cfg.AdaptiveMaxCapacity,
			s.cfg.AdaptiveStep, s.cfg.AdaptiveAdjustEvery)
	default:
		return newLRU(capacity)
	}
}

// Name returns the store label.
func (s *Store) Name() string { return s.cfg.Name }

// Get returns the cached image for key and whether it was present.
// The lookup counts as an access for the eviction strategy. The
// returned image is a shared immutable view; callers must not mutate
// its pixels.
func (s *Store) Get(key Key) (*imgcodec.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.strat.get(key)
	if !ok {
		s.misses++
		cacheMisses.WithLabelValues(s.cfg.Name).Inc()
		return nil, false
	}
	s.hits++
	cacheHits.WithLabelValues(s.cfg.Name).Inc()
	return e.img, true
}

// Put inserts or replaces the image under key, evicting per strategy
// when at capacity. Values without materialized pixels are refused.
func (s *Store) Put(key Key, img *imgcodec.Image) error {
	if !img.Materialized() {
		log.Errorf("cache %q: refusing to cache unmaterialized value for key %s", s.cfg.Name, key)
		return ErrNotMaterialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := newEntry(key, img)
	if old, ok := s.strat.peek(key); ok {
		// Replacement: the old size leaves the estimate here, the new
		// size enters below, evictions are accounted by dropEvicted.
		s.memory -= old.size
	}
	evicted := s.strat.put(e)
	s.memory += e.size
	s.dropEvicted(evicted)
	s.strat.observe(s.hitRateLocked())
	s.updateGauges()
	return nil
}

func (s *Store) dropEvicted(evicted []*entry) {
	for _, ev := range evicted {
		s.evictions++
		s.memory -= ev.size
		cacheEvictions.WithLabelValues(s.cfg.Name).Inc()
		log.Debugf("cache %q: evicted %s (%s)", s.cfg.Name, ev.key, imgcodec.FormatSize(ev.size))
		if s.cfg.OnEvict != nil {
			s.cfg.OnEvict(ev.key, ev.img)
		}
	}
}

// Clear removes every entry, invoking the eviction callback for each.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.OnEvict != nil {
		for _, e := range s.strat.entries() {
			s.cfg.OnEvict(e.key, e.img)
		}
	}
	s.strat.clear()
	s.memory = 0
	s.updateGauges()
}

// Resize changes the capacity bound, evicting down immediately when
// shrinking. Non-positive capacities are refused.
func (s *Store) Resize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropEvicted(s.strat.setCapacity(n))
	s.updateGauges()
	return nil
}

// SetStrategy swaps the eviction strategy at runtime. Cached content
// is copied across; access history restarts from scratch.
func (s *Store) SetStrategy(kind StrategyKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == StrategyKind(s.strat.name()) {
		return
	}
	old := s.strat.entries()
	next := s.newStrategy(kind, s.strat.capacity())
	s.strat = next
	s.memory = 0
	for _, e := range old {
		s.dropEvicted(next.put(e))
		s.memory += e.size
	}
	log.Infof("cache %q: strategy switched to %s (%d entries carried)", s.cfg.Name, kind, next.len())
	s.updateGauges()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strat.len()
}

// Contains reports whether key is cached, without counting an access.
func (s *Store) Contains(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strat.contains(key)
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:           s.strat.len(),
		Capacity:       s.strat.capacity(),
		Hits:           s.hits,
		Misses:         s.misses,
		HitRate:        s.hitRateLocked(),
		Evictions:      s.evictions,
		MemoryEstimate: s.memory,
		Strategy:       s.strat.name(),
	}
}

func (s *Store) hitRateLocked() float64 {
	total := s.hits + s.misses
	if total == 0 {
		return 0
	}
	return float64(s.hits) / float64(total)
}

func (s *Store) updateGauges() {
	cacheEntries.WithLabelValues(s.cfg.Name).Set(float64(s.strat.len()))
	cacheMemory.WithLabelValues(s.cfg.Name).Set(float64(s.memory))
}
