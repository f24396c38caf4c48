package metrics

import coremetrics "github.com/nikhiltv/tripforge/core/metrics"

// MultiSink fans scheduling events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTrips forwards the records to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordTrips(evs []coremetrics.TripEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTrips(evs); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards the run summary to all sinks.
func (m *MultiSink) RecordRun(ev coremetrics.RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}
