// Package fare computes trip pricing and capacity. The calculator is a pure
// function of its inputs: identical (route, slot, bus) arguments always
// produce the identical result.
package fare

import (
	"fmt"
	"math"

	"github.com/nikhiltv/tripforge/core/model"
)

// Params tunes the calculator.
type Params struct {
	// MinimumFare is the floor applied after the distance computation,
	// expressed in whole currency units.
	MinimumFare float64 `json:"minimum_fare"`
}

// Quote is the computed price and seating for one trip.
type Quote struct {
	Fare           float64
	Capacity       int
	AvailableSeats int
}

// Compute prices a trip: base fare plus distance at the route's per-km rate,
// scaled by the slot's demand multiplier, rounded to the nearest whole unit
// and clamped to the configured minimum. Capacity is copied from the bus;
// available seats equal capacity at creation.
func Compute(route model.Route, multiplier float64, bus model.Bus, p Params) (Quote, error) {
	if bus.Capacity <= 0 {
		return Quote{}, fmt.Errorf("fare: bus %s has no capacity", bus.ID)
	}
	if multiplier <= 0 {
		multiplier = 1.0
	}
	raw := route.BaseFare + route.DistanceKm*route.FarePerKm*multiplier
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Quote{}, fmt.Errorf("fare: non-finite fare for route %s", route.ID)
	}
	amount := math.Round(raw)
	if amount < p.MinimumFare {
		amount = math.Round(p.MinimumFare)
	}
	if amount < 0 {
		amount = 0
	}
	return Quote{Fare: amount, Capacity: bus.Capacity, AvailableSeats: bus.Capacity}, nil
}
