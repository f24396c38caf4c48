package model

import (
	"fmt"
	"time"
)

// TripStatus enumerates the lifecycle states of a trip.
type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripBoarding  TripStatus = "boarding"
	TripRunning   TripStatus = "running"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
	TripDelayed   TripStatus = "delayed"
)

// Terminal reports whether the status admits no further transitions.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// FareClass tags the pricing category of a trip.
type FareClass string

const (
	FareStandard   FareClass = "standard"
	FareExpress    FareClass = "express"
	FareInterstate FareClass = "interstate"
)

// Trip is the engine's primary output: one departure of one bus on one
// route, crewed and priced. Trips are created by the allocator, mutated by
// booking operations externally, and cleared wholesale by regeneration.
type Trip struct {
	ID          string
	Code        string
	RouteID     string
	BusID       string
	DriverID    string
	ConductorID string
	DepotID     string

	ServiceDate time.Time // midnight of the operating day
	StartTime   string    // "HH:MM"
	EndTime     string    // "HH:MM", may be past midnight
	DurationMin int

	Fare           float64
	Capacity       int
	AvailableSeats int
	BookedSeats    int

	Status      TripStatus
	SlotKind    string
	FareClass   FareClass
	BookingOpen bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the absolute time window the trip occupies. The end may
// fall on the next calendar day when the route duration crosses midnight.
func (t Trip) Window() (TimeWindow, error) {
	start, err := CombineDateTime(t.ServiceDate, t.StartTime)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	if t.DurationMin <= 0 {
		return TimeWindow{}, fmt.Errorf("trip %s: non-positive duration", t.ID)
	}
	return TimeWindow{Start: start, End: start.Add(time.Duration(t.DurationMin) * time.Minute)}, nil
}

// CheckInvariants rejects trips that must never be persisted.
func (t Trip) CheckInvariants() error {
	if t.Capacity <= 0 {
		return fmt.Errorf("trip %s: capacity must be positive", t.ID)
	}
	if t.Fare < 0 {
		return fmt.Errorf("trip %s: negative fare", t.ID)
	}
	if t.AvailableSeats < 0 {
		return fmt.Errorf("trip %s: negative available seats", t.ID)
	}
	if t.Capacity-t.BookedSeats != t.AvailableSeats {
		return fmt.Errorf("trip %s: seat accounting mismatch (%d-%d != %d)",
			t.ID, t.Capacity, t.BookedSeats, t.AvailableSeats)
	}
	return nil
}

// DutyStatus enumerates the standing-assignment lifecycle.
type DutyStatus string

const (
	DutyAssigned   DutyStatus = "assigned"
	DutyStarted    DutyStatus = "started"
	DutyInProgress DutyStatus = "in-progress"
	DutyCompleted  DutyStatus = "completed"
	DutyCancelled  DutyStatus = "cancelled"
)

// Duty binds a crew pair to a bus outside of any specific trip context.
type Duty struct {
	ID          string
	DepotID     string
	BusID       string
	DriverID    string
	ConductorID string
	Status      DutyStatus
	StartedAt   time.Time
}

// DutyRef is the lightweight back-reference carried on a crew member.
type DutyRef struct {
	DutyID string
	BusID  string
	Status DutyStatus
}
