package model

import (
	"fmt"
	"strings"
	"time"
)

// DepotStatus enumerates the operational states of a depot.
type DepotStatus string

const (
	DepotActive   DepotStatus = "active"
	DepotInactive DepotStatus = "inactive"
)

// Depot is an operational base owning buses, crew and serviceable routes.
// Depots are created externally and read-only to the engine.
type Depot struct {
	ID           string
	Name         string
	Code         string
	District     string
	Status       DepotStatus
	BusCount     int
	CrewCapacity int
}

// Validate checks the fields the engine depends on.
func (d Depot) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("depot: missing id")
	}
	if d.Status != DepotActive && d.Status != DepotInactive {
		return fmt.Errorf("depot %s: unknown status %q", d.ID, d.Status)
	}
	return nil
}

// RouteStatus enumerates route states.
type RouteStatus string

const (
	RouteActive   RouteStatus = "active"
	RouteInactive RouteStatus = "inactive"
)

// Route describes a serviceable connection between two points. Routes are
// immutable for the duration of one scheduling run.
type Route struct {
	ID                  string
	Name                string
	Number              string
	OriginCity          string
	OriginDistrict      string
	DestinationCity     string
	DestinationDistrict string
	DistanceKm          float64
	DurationMin         int
	BaseFare            float64
	FarePerKm           float64
	DepotID             string
	Status              RouteStatus
}

// Interstate reports whether the route leaves its origin district.
func (r Route) Interstate() bool {
	return !strings.EqualFold(strings.TrimSpace(r.OriginDistrict), strings.TrimSpace(r.DestinationDistrict))
}

// Validate rejects routes that cannot produce a valid trip.
func (r Route) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("route: missing id")
	}
	if r.DurationMin <= 0 {
		return fmt.Errorf("route %s: duration must be positive", r.ID)
	}
	if r.DistanceKm < 0 {
		return fmt.Errorf("route %s: negative distance", r.ID)
	}
	if r.BaseFare < 0 || r.FarePerKm < 0 {
		return fmt.Errorf("route %s: negative fare parameters", r.ID)
	}
	return nil
}

// BusStatus enumerates bus states.
type BusStatus string

const (
	BusActive      BusStatus = "active"
	BusIdle        BusStatus = "idle"
	BusMaintenance BusStatus = "maintenance"
	BusAssigned    BusStatus = "assigned"
)

// Bus is a vehicle owned by a depot. A bus serves at most one trip per
// overlapping time window on a given service date.
type Bus struct {
	ID       string
	Number   string
	DepotID  string
	Type     string
	Capacity int
	Status   BusStatus

	// Standing crew pairing maintained by the crew binder, independent of
	// any trip.
	AssignedDriver    string
	AssignedConductor string
	DutyStartedAt     *time.Time
}

// Schedulable reports whether the bus may be picked up by the resource pool.
func (b Bus) Schedulable() bool {
	return b.Status == BusActive || b.Status == BusIdle
}

// Validate checks the fields the engine depends on.
func (b Bus) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bus: missing id")
	}
	if b.DepotID == "" {
		return fmt.Errorf("bus %s: missing depot", b.ID)
	}
	if b.Capacity <= 0 {
		return fmt.Errorf("bus %s: capacity must be positive", b.ID)
	}
	switch b.Status {
	case BusActive, BusIdle, BusMaintenance, BusAssigned:
		return nil
	default:
		return fmt.Errorf("bus %s: unknown status %q", b.ID, b.Status)
	}
}

// CrewStatus enumerates staff states.
type CrewStatus string

const (
	CrewActive   CrewStatus = "active"
	CrewInactive CrewStatus = "inactive"
)

// Crew holds the fields shared by drivers and conductors.
type Crew struct {
	ID      string
	Name    string
	DepotID string
	Status  CrewStatus

	// CurrentDuty references an in-progress assignment, if any. A person
	// holds at most one in-progress duty at any time.
	CurrentDuty *DutyRef
}

// OnDuty reports whether the person is tied up by an in-progress duty.
func (c Crew) OnDuty() bool {
	return c.CurrentDuty != nil && c.CurrentDuty.Status == DutyInProgress
}

// Eligible reports whether the person may be picked up by the resource pool.
func (c Crew) Eligible() bool {
	return c.Status == CrewActive && !c.OnDuty()
}

// Validate checks the fields the engine depends on.
func (c Crew) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("crew: missing id")
	}
	if c.Status != CrewActive && c.Status != CrewInactive {
		return fmt.Errorf("crew %s: unknown status %q", c.ID, c.Status)
	}
	return nil
}

// Driver operates a bus.
type Driver struct {
	Crew
	LicenseNumber string
}

// Conductor handles ticketing on board.
type Conductor struct {
	Crew
	EmployeeCode string
}
