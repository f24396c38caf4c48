// Package lifecycle owns the trip state machine and the today-vs-future
// status policy applied at generation time.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/nikhiltv/tripforge/core/model"
)

// DefaultRunningLimit bounds how many of today's trips are promoted to
// running during a run, modelling buses already on the road.
const DefaultRunningLimit = 100

// transitions lists the forward edges of the state machine. Cancelled is
// reachable from every non-terminal state; delayed is an orthogonal hold
// from scheduled or boarding. Terminal states have no outgoing edges.
var transitions = map[model.TripStatus][]model.TripStatus{
	model.TripScheduled: {model.TripBoarding, model.TripRunning, model.TripDelayed, model.TripCancelled},
	model.TripBoarding:  {model.TripRunning, model.TripDelayed, model.TripCancelled},
	model.TripRunning:   {model.TripCompleted, model.TripCancelled},
	model.TripDelayed:   {model.TripScheduled, model.TripBoarding, model.TripCancelled},
}

// CanTransition reports whether a trip may move from one status to another.
func CanTransition(from, to model.TripStatus) bool {
	if from == to {
		return false
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change, rejecting invalid moves. Terminal
// states never transition; backward moves are invalid.
func Transition(t *model.Trip, to model.TripStatus, now time.Time) error {
	if t.Status.Terminal() {
		return fmt.Errorf("trip %s: %s is terminal", t.ID, t.Status)
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("trip %s: invalid transition %s -> %s", t.ID, t.Status, to)
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// InitialStatus is assigned to every trip at creation.
func InitialStatus() model.TripStatus { return model.TripScheduled }

// PromoteRunning advances up to limit of today's scheduled trips to running
// and returns how many were promoted. Trips for future service dates are
// left untouched. A non-positive limit falls back to DefaultRunningLimit.
func PromoteRunning(trips []model.Trip, today time.Time, limit int, now time.Time) int {
	if limit <= 0 {
		limit = DefaultRunningLimit
	}
	day := model.Midnight(today)
	promoted := 0
	for i := range trips {
		if promoted >= limit {
			break
		}
		if trips[i].Status != model.TripScheduled {
			continue
		}
		if !model.Midnight(trips[i].ServiceDate).Equal(day) {
			continue
		}
		if err := Transition(&trips[i], model.TripRunning, now); err != nil {
			continue
		}
		promoted++
	}
	return promoted
}
