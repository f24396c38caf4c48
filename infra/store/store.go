// Package store persists trips and serves roster snapshots. Batch insertion
// is best-effort: individual record failures never abort the batch.
package store

import (
	"context"
	"time"

	"github.com/nikhiltv/tripforge/core/model"
)

// FailedTrip reports one record that could not be saved.
type FailedTrip struct {
	Trip model.Trip
	Err  string
}

// TripStore persists generated trips.
type TripStore interface {
	// InsertBatch saves the trips, committing the ones that succeed and
	// reporting the ones that fail. The error return covers store-level
	// failures only, not per-record ones.
	InsertBatch(ctx context.Context, trips []model.Trip) (inserted int, failed []FailedTrip, err error)
	// DeleteRange removes trips whose service date falls in [from, to) and
	// whose status is in statuses. An empty depotID matches all depots.
	DeleteRange(ctx context.Context, depotID string, from, to time.Time, statuses []model.TripStatus) (int, error)
	// ListRange returns trips whose service date falls in [from, to).
	ListRange(ctx context.Context, from, to time.Time) ([]model.Trip, error)
	// UpdateStatus sets the status of one trip.
	UpdateStatus(ctx context.Context, tripID string, status model.TripStatus, at time.Time) error
	Close() error
}

// RosterStore serves the read-only input snapshots for a run.
type RosterStore interface {
	Depots(ctx context.Context) ([]model.Depot, error)
	Routes(ctx context.Context) ([]model.Route, error)
	Buses(ctx context.Context) ([]model.Bus, error)
	Drivers(ctx context.Context) ([]model.Driver, error)
	Conductors(ctx context.Context) ([]model.Conductor, error)
}
