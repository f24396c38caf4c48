package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nikhiltv/tripforge/core/model"
)

// MemoryStore is an in-memory TripStore and RosterStore, used in tests and
// for dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]model.Trip

	depots     []model.Depot
	routes     []model.Route
	buses      []model.Bus
	drivers    []model.Driver
	conductors []model.Conductor
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string]model.Trip)}
}

// SeedRoster installs the snapshots returned by the RosterStore methods.
func (s *MemoryStore) SeedRoster(depots []model.Depot, routes []model.Route, buses []model.Bus, drivers []model.Driver, conductors []model.Conductor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depots, s.routes, s.buses, s.drivers, s.conductors = depots, routes, buses, drivers, conductors
}

func (s *MemoryStore) Depots(context.Context) ([]model.Depot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Depot(nil), s.depots...), nil
}

func (s *MemoryStore) Routes(context.Context) ([]model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Route(nil), s.routes...), nil
}

func (s *MemoryStore) Buses(context.Context) ([]model.Bus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Bus(nil), s.buses...), nil
}

func (s *MemoryStore) Drivers(context.Context) ([]model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Driver(nil), s.drivers...), nil
}

func (s *MemoryStore) Conductors(context.Context) ([]model.Conductor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Conductor(nil), s.conductors...), nil
}

// InsertBatch saves each trip, treating a duplicate ID as a per-record
// uniqueness violation.
func (s *MemoryStore) InsertBatch(_ context.Context, trips []model.Trip) (int, []FailedTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []FailedTrip
	inserted := 0
	for _, t := range trips {
		if _, dup := s.trips[t.ID]; dup {
			failed = append(failed, FailedTrip{Trip: t, Err: fmt.Sprintf("trip %s already exists", t.ID)})
			continue
		}
		s.trips[t.ID] = t
		inserted++
	}
	return inserted, failed, nil
}

func (s *MemoryStore) DeleteRange(_ context.Context, depotID string, from, to time.Time, statuses []model.TripStatus) (int, error) {
	match := make(map[model.TripStatus]bool, len(statuses))
	for _, st := range statuses {
		match[st] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, t := range s.trips {
		if depotID != "" && t.DepotID != depotID {
			continue
		}
		if t.ServiceDate.Before(from) || !t.ServiceDate.Before(to) {
			continue
		}
		if len(match) > 0 && !match[t.Status] {
			continue
		}
		delete(s.trips, id)
		deleted++
	}
	return deleted, nil
}

func (s *MemoryStore) ListRange(_ context.Context, from, to time.Time) ([]model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Trip
	for _, t := range s.trips {
		if t.ServiceDate.Before(from) || !t.ServiceDate.Before(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ServiceDate.Equal(out[j].ServiceDate) {
			return out[i].ServiceDate.Before(out[j].ServiceDate)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, tripID string, status model.TripStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("trip %s not found", tripID)
	}
	t.Status = status
	t.UpdatedAt = at
	s.trips[tripID] = t
	return nil
}

func (s *MemoryStore) Close() error { return nil }
