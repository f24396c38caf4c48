package metrics

import (
	"testing"

	coremetrics "github.com/nikhiltv/tripforge/core/metrics"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordTrips([]coremetrics.TripEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordRun(coremetrics.RunEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordTrips(nil); err != nil {
		t.Fatalf("record trips: %v", err)
	}
	if err := m.RecordRun(coremetrics.RunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestPromSinkRecords(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, nil)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	evs := []coremetrics.TripEvent{
		{TripID: "t1", DepotID: "d1", SlotKind: "morning", FareClass: "standard"},
		{TripID: "t2", DepotID: "d1", SlotKind: "evening-peak", FareClass: "express"},
	}
	if err := sink.RecordTrips(evs); err != nil {
		t.Fatalf("record trips: %v", err)
	}
	if err := sink.RecordRun(coremetrics.RunEvent{TripsCreated: 2}); err != nil {
		t.Fatalf("record run: %v", err)
	}
}
