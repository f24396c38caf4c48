// Package crewbind durably pairs a driver and conductor with a bus,
// independent of trip generation. The pairing is a depot-level staffing
// concern: a bus moves to "assigned" only once both roles are filled, and a
// duty record with a start timestamp captures the standing assignment.
package crewbind

import (
	"time"

	"github.com/google/uuid"

	"github.com/nikhiltv/tripforge/core/logger"
	"github.com/nikhiltv/tripforge/core/model"
)

// Options controls one binding pass.
type Options struct {
	// BusIDs restricts the pass to the listed buses. Empty means every
	// eligible bus in the depot.
	BusIDs []string
	// Force releases the current holders of an already-crewed bus before
	// pairing new crew.
	Force bool
}

// Result reports the outcome of one depot's binding pass.
type Result struct {
	DepotID string
	// Skipped is true when the whole depot was skipped for lack of crew.
	Skipped bool
	Reason  string

	Assigned int
	Released int

	Buses      []model.Bus
	Drivers    []model.Driver
	Conductors []model.Conductor
	Duties     []model.Duty
}

// Run executes a crew-binding pass for one depot. Inputs are snapshots; the
// updated copies are returned in the Result. A depot with zero eligible
// drivers or conductors is skipped with a diagnostic, never an error.
func Run(depot model.Depot, buses []model.Bus, drivers []model.Driver, conductors []model.Conductor, opts Options, now time.Time, log logger.Logger) Result {
	res := Result{
		DepotID:    depot.ID,
		Buses:      append([]model.Bus(nil), buses...),
		Drivers:    append([]model.Driver(nil), drivers...),
		Conductors: append([]model.Conductor(nil), conductors...),
	}

	eligibleDrivers := eligibleIdx(res.Drivers)
	eligibleConductors := eligibleConductorIdx(res.Conductors)
	if len(eligibleDrivers) == 0 || len(eligibleConductors) == 0 {
		res.Skipped = true
		res.Reason = "no eligible crew"
		log.Warnf("crewbind: depot %s skipped: %d drivers, %d conductors eligible",
			depot.ID, len(eligibleDrivers), len(eligibleConductors))
		return res
	}

	wanted := make(map[string]bool, len(opts.BusIDs))
	for _, id := range opts.BusIDs {
		wanted[id] = true
	}

	di, ci := 0, 0
	for i := range res.Buses {
		bus := &res.Buses[i]
		if bus.DepotID != depot.ID {
			continue
		}
		if len(wanted) > 0 && !wanted[bus.ID] {
			continue
		}
		if bus.Status == model.BusMaintenance {
			continue
		}
		crewed := bus.AssignedDriver != "" && bus.AssignedConductor != ""
		if crewed && !opts.Force {
			continue
		}
		// A half-crewed bus is stale state from an interrupted pass. Release
		// whoever still holds it so their duty reference cannot dangle, then
		// pair fresh crew.
		if bus.AssignedDriver != "" || bus.AssignedConductor != "" {
			release(bus, res.Drivers, res.Conductors)
			res.Released++
		}

		driver := &res.Drivers[eligibleDrivers[di%len(eligibleDrivers)]]
		conductor := &res.Conductors[eligibleConductors[ci%len(eligibleConductors)]]
		di++
		ci++

		duty := model.Duty{
			ID:          uuid.NewString(),
			DepotID:     depot.ID,
			BusID:       bus.ID,
			DriverID:    driver.ID,
			ConductorID: conductor.ID,
			Status:      model.DutyAssigned,
			StartedAt:   now,
		}
		ref := model.DutyRef{DutyID: duty.ID, BusID: bus.ID, Status: model.DutyAssigned}
		driver.CurrentDuty = &ref
		conductor.CurrentDuty = &ref

		bus.AssignedDriver = driver.ID
		bus.AssignedConductor = conductor.ID
		bus.Status = model.BusAssigned
		started := now
		bus.DutyStartedAt = &started

		res.Duties = append(res.Duties, duty)
		res.Assigned++
		log.Debugf("crewbind: bus %s paired with driver %s and conductor %s", bus.ID, driver.ID, conductor.ID)
	}

	log.Infof("crewbind: depot %s: %d buses paired, %d crews released", depot.ID, res.Assigned, res.Released)
	return res
}

// release clears the current holders of a bus ahead of a re-pairing. Either
// role may already be empty.
func release(bus *model.Bus, drivers []model.Driver, conductors []model.Conductor) {
	if bus.AssignedDriver != "" {
		for i := range drivers {
			if drivers[i].ID == bus.AssignedDriver {
				drivers[i].CurrentDuty = nil
			}
		}
	}
	if bus.AssignedConductor != "" {
		for i := range conductors {
			if conductors[i].ID == bus.AssignedConductor {
				conductors[i].CurrentDuty = nil
			}
		}
	}
	bus.AssignedDriver = ""
	bus.AssignedConductor = ""
	bus.DutyStartedAt = nil
	if bus.Status == model.BusAssigned {
		bus.Status = model.BusIdle
	}
}

func eligibleIdx(drivers []model.Driver) []int {
	var out []int
	for i, d := range drivers {
		if d.Eligible() {
			out = append(out, i)
		}
	}
	return out
}

func eligibleConductorIdx(conductors []model.Conductor) []int {
	var out []int
	for i, c := range conductors {
		if c.Eligible() {
			out = append(out, i)
		}
	}
	return out
}
