// Package events defines the notifications published on the internal bus
// during a scheduling run. Consumers subscribe best-effort; losing an event
// never affects the run outcome.
package events

import "time"

// RunStarted is published when a regeneration run begins.
type RunStarted struct {
	Horizon int
	Depots  int
	Seed    int64
	Start   time.Time
}

// DepotSkipped is published when a depot cannot participate in a run.
type DepotSkipped struct {
	DepotID string
	Reason  string
}

// Shortfall is published when a (route, date, slot) tuple cannot be
// allocated because the pool is exhausted.
type Shortfall struct {
	DepotID  string
	RouteID  string
	Date     time.Time
	Slot     string
	Resource string
}

// TripsPersisted is published after a batch insert completes.
type TripsPersisted struct {
	DepotID  string
	Inserted int
	Failed   int
}

// RunCompleted is published once the run summary is final.
type RunCompleted struct {
	TripsCreated int
	Running      int
	Shortfalls   int
	Elapsed      time.Duration
}
