package sched

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tripsCreated    *prometheus.CounterVec
	shortfallsTotal *prometheus.CounterVec
	runningPromoted prometheus.Counter
	persistFailures prometheus.Counter
	runDuration     prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Histogram) {
	created := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trips_created_total",
			Help: "Number of trips created by scheduling runs",
		},
		[]string{"depot", "fare_class"},
	)
	shorts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_shortfalls_total",
			Help: "Number of tuples skipped because the resource pool was exhausted",
		},
		[]string{"depot", "resource"},
	)
	running := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trips_promoted_running_total",
			Help: "Number of today's trips advanced to running at generation time",
		},
	)
	persist := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trip_persist_failures_total",
			Help: "Number of trip records that failed to save after retry",
		},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_run_duration_seconds",
			Help:    "Wall-clock duration of scheduling runs",
			Buckets: prometheus.DefBuckets,
		},
	)
	return created, shorts, running, persist, dur
}

func init() {
	tripsCreated, shortfallsTotal, runningPromoted, persistFailures, runDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tripsCreated, shortfallsTotal, runningPromoted, persistFailures, runDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tripsCreated, shortfallsTotal, runningPromoted, persistFailures, runDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
