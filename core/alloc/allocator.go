// Package alloc assigns one bus, one driver and one conductor to each
// (route, date, slot) tuple, consuming a depot's resource pool. Allocation
// is fail-soft per tuple: pool exhaustion yields a shortfall record and the
// run continues. All run-scoped counters live in an explicit State value
// passed into and returned from every call, so allocation is reproducible
// and testable without hidden process state.
package alloc

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhiltv/tripforge/core/fare"
	"github.com/nikhiltv/tripforge/core/lifecycle"
	"github.com/nikhiltv/tripforge/core/logger"
	"github.com/nikhiltv/tripforge/core/model"
	"github.com/nikhiltv/tripforge/core/pool"
	"github.com/nikhiltv/tripforge/core/slots"
)

// Tuple is one unit of allocation work.
type Tuple struct {
	Route model.Route
	Date  time.Time
	Slot  slots.Slot
}

// Shortfall records a tuple that could not be allocated.
type Shortfall struct {
	DepotID  string
	RouteID  string
	Date     time.Time
	Slot     string
	Resource pool.Kind
	Reason   string
}

// Config tunes the allocator.
type Config struct {
	Fare fare.Params `json:"fare"`
	// AllowDepotFallback enables drawing from a secondary pool when the
	// depot's own pool is exhausted. Off by default: the shipped policy is
	// skip-and-record.
	AllowDepotFallback bool `json:"allow_depot_fallback"`
}

// Allocator builds trips for one depot against one resource pool.
type Allocator struct {
	depot    model.Depot
	pool     *pool.Pool
	fallback *pool.Pool
	cfg      Config
	log      logger.Logger
}

// New creates an Allocator. fallback may be nil; it is only consulted when
// cfg.AllowDepotFallback is set.
func New(depot model.Depot, p *pool.Pool, fallback *pool.Pool, cfg Config, log logger.Logger) *Allocator {
	return &Allocator{depot: depot, pool: p, fallback: fallback, cfg: cfg, log: log}
}

// Allocate processes one tuple. On success it returns the updated state and
// the built trip; on pool exhaustion it returns a shortfall instead. An
// error return means an invariant violation: the record must be rejected,
// never persisted.
func (a *Allocator) Allocate(st State, tup Tuple, now time.Time) (State, *model.Trip, *Shortfall, error) {
	endClock, err := slots.EndTime(tup.Slot.Start, tup.Route.DurationMin)
	if err != nil {
		return st, nil, nil, fmt.Errorf("alloc: route %s: %w", tup.Route.ID, err)
	}
	start, err := model.CombineDateTime(tup.Date, tup.Slot.Start)
	if err != nil {
		return st, nil, nil, fmt.Errorf("alloc: route %s: %w", tup.Route.ID, err)
	}
	w := model.TimeWindow{Start: start, End: start.Add(time.Duration(tup.Route.DurationMin) * time.Minute)}

	bus, busPool, short := a.acquireBus(w, tup)
	if short != nil {
		return st, nil, short, nil
	}
	driver, driverPool, short := a.acquireDriver(w, tup)
	if short != nil {
		busPool.ReleaseBus(bus.ID, w)
		return st, nil, short, nil
	}
	conductor, conductorPool, short := a.acquireConductor(w, tup)
	if short != nil {
		busPool.ReleaseBus(bus.ID, w)
		driverPool.ReleaseDriver(driver.ID, w)
		return st, nil, short, nil
	}

	rollback := func() {
		busPool.ReleaseBus(bus.ID, w)
		driverPool.ReleaseDriver(driver.ID, w)
		conductorPool.ReleaseConductor(conductor.ID, w)
	}

	quote, err := fare.Compute(tup.Route, tup.Slot.Multiplier, bus, a.cfg.Fare)
	if err != nil {
		rollback()
		return st, nil, nil, fmt.Errorf("alloc: %w", err)
	}

	st.Seq++
	trip := model.Trip{
		ID:          uuid.NewString(),
		Code:        fmt.Sprintf("%s-%s-%03d", a.depot.Code, tup.Date.Format("060102"), st.Seq),
		RouteID:     tup.Route.ID,
		BusID:       bus.ID,
		DriverID:    driver.ID,
		ConductorID: conductor.ID,
		DepotID:     a.depot.ID,
		ServiceDate: model.Midnight(tup.Date),
		StartTime:   tup.Slot.Start,
		EndTime:     endClock,
		DurationMin: tup.Route.DurationMin,

		Fare:           quote.Fare,
		Capacity:       quote.Capacity,
		AvailableSeats: quote.AvailableSeats,
		BookedSeats:    0,

		Status:      lifecycle.InitialStatus(),
		SlotKind:    tup.Slot.Kind,
		FareClass:   st.fareClass(tup.Route),
		BookingOpen: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := trip.CheckInvariants(); err != nil {
		// An invariant failure here is an allocator bug, not operational
		// variance. Reject the record and say so loudly.
		a.log.Errorf("alloc: invariant violation, rejecting record: %v", err)
		st.Seq--
		rollback()
		return st, nil, nil, fmt.Errorf("alloc: %w", err)
	}

	if tup.Route.Interstate() {
		st.Interstate++
	} else {
		st.Local++
	}
	return st, &trip, nil, nil
}

// The acquire helpers return the pool that granted the reservation so a
// partial acquisition can be undone against the right one.

func (a *Allocator) acquireBus(w model.TimeWindow, tup Tuple) (model.Bus, *pool.Pool, *Shortfall) {
	b, err := a.pool.NextBus(w)
	if err == nil {
		return b, a.pool, nil
	}
	if a.cfg.AllowDepotFallback && a.fallback != nil {
		if b, ferr := a.fallback.NextBus(w); ferr == nil {
			a.log.Debugf("alloc: depot %s borrowed bus %s", a.depot.ID, b.ID)
			return b, a.fallback, nil
		}
	}
	return model.Bus{}, nil, a.shortfall(tup, pool.KindBus, err)
}

func (a *Allocator) acquireDriver(w model.TimeWindow, tup Tuple) (model.Driver, *pool.Pool, *Shortfall) {
	d, err := a.pool.NextDriver(w)
	if err == nil {
		return d, a.pool, nil
	}
	if a.cfg.AllowDepotFallback && a.fallback != nil {
		if d, ferr := a.fallback.NextDriver(w); ferr == nil {
			return d, a.fallback, nil
		}
	}
	return model.Driver{}, nil, a.shortfall(tup, pool.KindDriver, err)
}

func (a *Allocator) acquireConductor(w model.TimeWindow, tup Tuple) (model.Conductor, *pool.Pool, *Shortfall) {
	c, err := a.pool.NextConductor(w)
	if err == nil {
		return c, a.pool, nil
	}
	if a.cfg.AllowDepotFallback && a.fallback != nil {
		if c, ferr := a.fallback.NextConductor(w); ferr == nil {
			return c, a.fallback, nil
		}
	}
	return model.Conductor{}, nil, a.shortfall(tup, pool.KindConductor, err)
}

func (a *Allocator) shortfall(tup Tuple, kind pool.Kind, err error) *Shortfall {
	a.log.Debugf("alloc: depot %s route %s %s %s: %v",
		a.depot.ID, tup.Route.ID, tup.Date.Format("2006-01-02"), tup.Slot.Start, err)
	return &Shortfall{
		DepotID:  a.depot.ID,
		RouteID:  tup.Route.ID,
		Date:     model.Midnight(tup.Date),
		Slot:     tup.Slot.Start,
		Resource: kind,
		Reason:   err.Error(),
	}
}
