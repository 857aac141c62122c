package cache

import "github.com/prometheus/client_golang/prometheus"

// Stats is a snapshot of store counters for diagnostics surfaces.
type Stats struct {
	// Size is the number of cached images.
	Size int

	// Capacity is the current entry bound. For the adaptive strategy
	// this moves between its configured limits.
	Capacity int

	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64

	// MemoryEstimate is the summed byte estimate of all cached pixel
	// buffers.
	MemoryEstimate int64

	Strategy string
}

var (
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec
	cacheMemory    *prometheus.GaugeVec
)

func init() {
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_hits_total",
			Help: "Number of cache lookups answered from memory",
		},
		[]string{"cache"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_misses_total",
			Help: "Number of cache lookups that required a decode",
		},
		[]string{"cache"},
	)

	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_evictions_total",
			Help: "Number of decoded images dropped by the eviction strategy",
		},
		[]string{"cache"},
	)

	cacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_cache_entries",
			Help: "Current number of cached decoded images",
		},
		[]string{"cache"},
	)

	cacheMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_cache_memory_bytes",
			Help: "Estimated bytes held by cached pixel buffers",
		},
		[]string{"cache"},
	)

	prometheus.MustRegister(cacheHits, cacheMisses, cacheEvictions, cacheEntries, cacheMemory)
}
