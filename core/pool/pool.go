// Package pool holds a depot's schedulable inventory for one run: buses,
// drivers and conductors with their reservation state. Selection is
// least-recently-used among entries whose prior reservations do not overlap
// the requested window, which spreads load round-robin and keeps runs
// reproducible.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nikhiltv/tripforge/core/logger"
	"github.com/nikhiltv/tripforge/core/model"
)

// ErrExhausted signals that no eligible resource of the requested kind
// remains available for the window.
var ErrExhausted = errors.New("pool exhausted")

// Kind names a resource class, used in shortfall reports.
type Kind string

const (
	KindBus       Kind = "bus"
	KindDriver    Kind = "driver"
	KindConductor Kind = "conductor"

	// KindInterstate marks tuples declined by the interstate budget rather
	// than by inventory.
	KindInterstate Kind = "interstate_budget"
)

type entry struct {
	id       string
	lastUsed int
	reserved []model.TimeWindow
}

func (e *entry) free(w model.TimeWindow) bool {
	for _, r := range e.reserved {
		if r.Overlaps(w) {
			return false
		}
	}
	return true
}

// Pool is a per-depot resource inventory. All methods are safe for
// concurrent use; reservation is atomic so two overlapping requests can
// never obtain the same resource.
type Pool struct {
	mu         sync.Mutex
	depotID    string
	tick       int
	buses      []*entry
	drivers    []*entry
	conductors []*entry

	busByID       map[string]model.Bus
	driverByID    map[string]model.Driver
	conductorByID map[string]model.Conductor
}

// Load builds a pool from roster snapshots, applying eligibility rules at
// the boundary: buses must be active or idle, crew must be active with no
// in-progress duty, and records failing validation are excluded up front
// rather than discovered mid-allocation.
func Load(depotID string, buses []model.Bus, drivers []model.Driver, conductors []model.Conductor, log logger.Logger) *Pool {
	p := &Pool{
		depotID:       depotID,
		busByID:       make(map[string]model.Bus),
		driverByID:    make(map[string]model.Driver),
		conductorByID: make(map[string]model.Conductor),
	}
	for _, b := range buses {
		if b.DepotID != depotID {
			continue
		}
		if err := b.Validate(); err != nil {
			log.Warnf("pool %s: excluding bus: %v", depotID, err)
			continue
		}
		if !b.Schedulable() {
			log.Debugf("pool %s: bus %s not schedulable (%s)", depotID, b.ID, b.Status)
			continue
		}
		p.buses = append(p.buses, &entry{id: b.ID})
		p.busByID[b.ID] = b
	}
	for _, d := range drivers {
		if d.DepotID != depotID {
			continue
		}
		if err := d.Validate(); err != nil {
			log.Warnf("pool %s: excluding driver: %v", depotID, err)
			continue
		}
		if !d.Eligible() {
			log.Debugf("pool %s: driver %s not eligible", depotID, d.ID)
			continue
		}
		p.drivers = append(p.drivers, &entry{id: d.ID})
		p.driverByID[d.ID] = d
	}
	for _, c := range conductors {
		if c.DepotID != depotID {
			continue
		}
		if err := c.Validate(); err != nil {
			log.Warnf("pool %s: excluding conductor: %v", depotID, err)
			continue
		}
		if !c.Eligible() {
			log.Debugf("pool %s: conductor %s not eligible", depotID, c.ID)
			continue
		}
		p.conductors = append(p.conductors, &entry{id: c.ID})
		p.conductorByID[c.ID] = c
	}
	return p
}

// Counts returns the eligible inventory sizes.
func (p *Pool) Counts() (buses, drivers, conductors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buses), len(p.drivers), len(p.conductors)
}

// NextBus reserves and returns the least-recently-used bus free for the
// window, or ErrExhausted.
func (p *Pool) NextBus(w model.TimeWindow) (model.Bus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.pick(p.buses, w)
	if e == nil {
		return model.Bus{}, fmt.Errorf("%w: no %s for depot %s", ErrExhausted, KindBus, p.depotID)
	}
	return p.busByID[e.id], nil
}

// NextDriver reserves and returns the least-recently-used driver free for
// the window, or ErrExhausted.
func (p *Pool) NextDriver(w model.TimeWindow) (model.Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.pick(p.drivers, w)
	if e == nil {
		return model.Driver{}, fmt.Errorf("%w: no %s for depot %s", ErrExhausted, KindDriver, p.depotID)
	}
	return p.driverByID[e.id], nil
}

// NextConductor reserves and returns the least-recently-used conductor free
// for the window, or ErrExhausted.
func (p *Pool) NextConductor(w model.TimeWindow) (model.Conductor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.pick(p.conductors, w)
	if e == nil {
		return model.Conductor{}, fmt.Errorf("%w: no %s for depot %s", ErrExhausted, KindConductor, p.depotID)
	}
	return p.conductorByID[e.id], nil
}

// ReleaseBus drops the reservation w from the named bus, reversing a
// NextBus call whose tuple did not become a trip.
func (p *Pool) ReleaseBus(id string, w model.TimeWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	unreserve(p.buses, id, w)
}

// ReleaseDriver drops the reservation w from the named driver.
func (p *Pool) ReleaseDriver(id string, w model.TimeWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	unreserve(p.drivers, id, w)
}

// ReleaseConductor drops the reservation w from the named conductor.
func (p *Pool) ReleaseConductor(id string, w model.TimeWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	unreserve(p.conductors, id, w)
}

func unreserve(entries []*entry, id string, w model.TimeWindow) {
	for _, e := range entries {
		if e.id != id {
			continue
		}
		for i, r := range e.reserved {
			if r.Start.Equal(w.Start) && r.End.Equal(w.End) {
				e.reserved = append(e.reserved[:i], e.reserved[i+1:]...)
				return
			}
		}
		return
	}
}

// pick selects the free entry with the lowest lastUsed tick and reserves the
// window on it. Ties resolve in load order so results are stable.
func (p *Pool) pick(entries []*entry, w model.TimeWindow) *entry {
	var best *entry
	for _, e := range entries {
		if !e.free(w) {
			continue
		}
		if best == nil || e.lastUsed < best.lastUsed {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	p.tick++
	best.lastUsed = p.tick
	best.reserved = append(best.reserved, w)
	return best
}
