package metrics

import (
	coremetrics "github.com/nikhiltv/tripforge/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	trips      *prometheus.CounterVec
	runs       prometheus.Counter
	lastTrips  prometheus.Gauge
	lastShorts prometheus.Gauge
	lastFailed prometheus.Gauge
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	trips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_events_total",
		Help: "Total number of trip records emitted by scheduling runs",
	}, []string{"depot_id", "slot_kind", "fare_class"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total number of completed scheduling runs",
	})
	lastTrips := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_last_run_trips",
		Help: "Trips created by the most recent run",
	})
	lastShorts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_last_run_shortfalls",
		Help: "Allocation shortfalls in the most recent run",
	})
	lastFailed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_last_run_failed_records",
		Help: "Records dropped during persistence in the most recent run",
	})

	if err := reg.Register(trips); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			trips = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(lastTrips); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			lastTrips = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(lastShorts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			lastShorts = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(lastFailed); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			lastFailed = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{trips: trips, runs: runs, lastTrips: lastTrips, lastShorts: lastShorts, lastFailed: lastFailed}, nil
}

// RecordTrips increments the counter for each created trip.
func (s *PromSink) RecordTrips(evs []coremetrics.TripEvent) error {
	for _, ev := range evs {
		s.trips.WithLabelValues(ev.DepotID, ev.SlotKind, ev.FareClass).Inc()
	}
	return nil
}

// RecordRun updates the last-run gauges and the run counter.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.Inc()
	s.lastTrips.Set(float64(ev.TripsCreated))
	s.lastShorts.Set(float64(ev.Shortfalls))
	s.lastFailed.Set(float64(ev.Failed))
	return nil
}
