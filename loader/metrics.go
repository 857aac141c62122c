package loader

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal       *prometheus.CounterVec
	loadErrors       *prometheus.CounterVec
	coalescedLoads   prometheus.Counter
	staleDrops       prometheus.Counter
	preloadSubmitted prometheus.Counter
	preloadSkipped   *prometheus.CounterVec
)

func init() {
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_loads_total",
			Help: "Number of load requests accepted, by priority",
		},
		[]string{"priority"},
	)

	loadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_load_errors_total",
			Help: "Number of failed loads, by failure kind",
		},
		[]string{"kind"},
	)

	coalescedLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_loads_coalesced_total",
			Help: "Number of requests attached to an already in-flight decode",
		},
	)

	staleDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_results_stale_dropped_total",
			Help: "Number of results no consumer was still expecting",
		},
	)

	preloadSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_preloads_submitted_total",
			Help: "Number of neighbor preload requests submitted",
		},
	)

	preloadSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_preloads_skipped_total",
			Help: "Number of preload candidates skipped, by reason",
		},
		[]string{"reason"},
	)

	prometheus.MustRegister(loadsTotal, loadErrors, coalescedLoads, staleDrops,
		preloadSubmitted, preloadSkipped)
}
