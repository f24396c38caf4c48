// Package sched orchestrates schedule regeneration: it clears the horizon,
// fans out per-depot allocation workers, promotes today's departures and
// persists the result. A run is fail-soft per tuple and per record; only
// configuration and storage faults abort it.
package sched

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/nikhiltv/tripforge/core/alloc"
	"github.com/nikhiltv/tripforge/core/binder"
	"github.com/nikhiltv/tripforge/core/events"
	"github.com/nikhiltv/tripforge/core/lifecycle"
	"github.com/nikhiltv/tripforge/core/logger"
	"github.com/nikhiltv/tripforge/core/metrics"
	"github.com/nikhiltv/tripforge/core/model"
	"github.com/nikhiltv/tripforge/core/pool"
	"github.com/nikhiltv/tripforge/core/slots"
	"github.com/nikhiltv/tripforge/infra/store"
	"github.com/nikhiltv/tripforge/internal/eventbus"
)

// Summary reports the outcome of one regeneration run.
type Summary struct {
	TripsCreated  int
	PerDepot      map[string]int
	Running       int
	Shortfalls    []alloc.Shortfall
	Failed        int
	DepotsSkipped int
	Elapsed       time.Duration
}

// Manager drives regeneration runs against a roster snapshot and a trip
// store.
type Manager struct {
	cfg    Config
	roster store.RosterStore
	trips  store.TripStore
	sink   metrics.Sink
	bus    eventbus.EventBus
	log    logger.Logger
	now    func() time.Time
}

// NewManager creates a Manager. sink and bus may be nil; roster, trips and
// log may not.
func NewManager(cfg Config, roster store.RosterStore, trips store.TripStore, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if roster == nil || trips == nil || log == nil {
		return nil, fmt.Errorf("sched: nil parameter provided to NewManager")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		cfg:    cfg,
		roster: roster,
		trips:  trips,
		sink:   sink,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}, nil
}

// SetClock overrides the manager's time source.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// depotResult is what one worker hands back.
type depotResult struct {
	depotID    string
	trips      []model.Trip
	shortfalls []alloc.Shortfall
	skipped    bool
	failed     int
	err        error
}

// nonTerminal lists the statuses a regeneration replaces. Completed and
// cancelled trips are history and survive every run.
func nonTerminal() []model.TripStatus {
	return []model.TripStatus{
		model.TripScheduled,
		model.TripBoarding,
		model.TripRunning,
		model.TripDelayed,
	}
}

// ErrDepotNotFound signals a configured depot id absent from the roster.
var ErrDepotNotFound = errors.New("depot not found")

// Run executes one regeneration over [today, today+horizon). It always
// returns a Summary describing how far it got, even on error.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	start := m.now()
	base := start
	if m.cfg.RunDate != "" {
		d, err := time.Parse("2006-01-02", m.cfg.RunDate)
		if err != nil {
			return Summary{PerDepot: map[string]int{}}, fmt.Errorf("sched: invalid run_date: %w", err)
		}
		base = d
	}
	today := model.Midnight(base)
	sum := Summary{PerDepot: make(map[string]int)}

	depots, routes, buses, drivers, conductors, err := m.loadRoster(ctx)
	if err != nil {
		return sum, fmt.Errorf("sched: loading roster: %w", err)
	}
	depots, err = selectDepots(depots, m.cfg.Depots)
	if err != nil {
		return sum, err
	}
	m.publish(events.RunStarted{
		Horizon: m.cfg.HorizonDays,
		Depots:  len(depots),
		Seed:    m.cfg.Seed,
		Start:   start,
	})
	m.log.Infof("regeneration started: %d depots, %d routes, %d day horizon",
		len(depots), len(routes), m.cfg.HorizonDays)

	until := today.AddDate(0, 0, m.cfg.HorizonDays)
	cleared, err := m.trips.DeleteRange(ctx, "", today, until, nonTerminal())
	if err != nil {
		return sum, fmt.Errorf("sched: clearing horizon: %w", err)
	}
	m.log.Infof("cleared %d non-terminal trips in horizon", cleared)

	busesByDepot := make(map[string]int)
	for _, b := range buses {
		busesByDepot[b.DepotID]++
	}
	quotas := depotQuotas(depots, busesByDepot, m.cfg.DailyTripTarget)
	interQuotas := interstateQuotas(depots, busesByDepot, m.cfg.DailyTripTarget, m.cfg.HorizonDays, m.cfg.InterstateRatio)

	workers := m.cfg.Workers
	if workers <= 0 {
		workers = len(depots)
	}
	sem := make(chan struct{}, workers)
	results := make([]depotResult, len(depots))
	var wg sync.WaitGroup
	for i, d := range depots {
		wg.Add(1)
		go func(i int, d model.Depot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = m.runDepot(ctx, d, routes, buses, drivers, conductors, quotas[d.ID], newRatioGuard(interQuotas, d.ID), today)
		}(i, d)
	}
	wg.Wait()

	var all []model.Trip
	for _, r := range results {
		if r.err != nil {
			return sum, fmt.Errorf("sched: depot %s: %w", r.depotID, r.err)
		}
		if r.skipped {
			sum.DepotsSkipped++
			continue
		}
		all = append(all, r.trips...)
		sum.Shortfalls = append(sum.Shortfalls, r.shortfalls...)
		sum.Failed += r.failed
		sum.PerDepot[r.depotID] = len(r.trips)
	}
	sum.TripsCreated = len(all)

	nowTime := m.now()
	sum.Running = lifecycle.PromoteRunning(all, today, m.cfg.RunningLimit, nowTime)
	runningPromoted.Add(float64(sum.Running))

	if err := m.persist(ctx, all, &sum); err != nil {
		return sum, err
	}

	sum.Elapsed = m.now().Sub(start)
	runDuration.Observe(sum.Elapsed.Seconds())
	m.record(all, sum, len(depots), nowTime)
	m.publish(events.RunCompleted{
		TripsCreated: sum.TripsCreated,
		Running:      sum.Running,
		Shortfalls:   len(sum.Shortfalls),
		Elapsed:      sum.Elapsed,
	})
	m.log.Infof("regeneration finished: %d trips, %d running, %d shortfalls, %d failed in %s",
		sum.TripsCreated, sum.Running, len(sum.Shortfalls), sum.Failed, sum.Elapsed)
	return sum, nil
}

func (m *Manager) loadRoster(ctx context.Context) ([]model.Depot, []model.Route, []model.Bus, []model.Driver, []model.Conductor, error) {
	depots, err := m.roster.Depots(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	routes, err := m.roster.Routes(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	buses, err := m.roster.Buses(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	drivers, err := m.roster.Drivers(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	conductors, err := m.roster.Conductors(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return depots, routes, buses, drivers, conductors, nil
}

// runDepot generates the depot's trips for the whole horizon. dailyQuota of
// zero means uncapped.
func (m *Manager) runDepot(ctx context.Context, depot model.Depot, routes []model.Route, buses []model.Bus, drivers []model.Driver, conductors []model.Conductor, dailyQuota int, guard *ratioGuard, today time.Time) depotResult {
	res := depotResult{depotID: depot.ID}

	if depot.Status != model.DepotActive {
		m.log.Warnf("depot %s inactive, skipping", depot.ID)
		m.publish(events.DepotSkipped{DepotID: depot.ID, Reason: "inactive"})
		res.skipped = true
		return res
	}
	bound := binder.RoutesFor(depot, routes, m.cfg.BinderMode)
	if len(bound) == 0 {
		m.log.Warnf("depot %s has no bound routes, skipping", depot.ID)
		m.publish(events.DepotSkipped{DepotID: depot.ID, Reason: "no routes"})
		res.skipped = true
		return res
	}

	seed := m.cfg.Seed ^ depotSeed(depot.ID)
	rng := rand.New(rand.NewSource(seed))
	gen, err := slots.New(m.cfg.Slots, rng)
	if err != nil {
		res.err = err
		return res
	}
	pl := pool.Load(depot.ID, buses, drivers, conductors, m.log)
	nb, nd, nc := pl.Counts()
	m.log.Debugf("depot %s pool: %d buses, %d drivers, %d conductors, %d routes",
		depot.ID, nb, nd, nc, len(bound))

	st := alloc.NewState(seed)
	allocator := alloc.New(depot, pl, nil, m.cfg.Alloc, m.log)
	nowTime := m.now()

	for day := 0; day < m.cfg.HorizonDays; day++ {
		if ctx.Err() != nil {
			res.err = ctx.Err()
			return res
		}
		date := today.AddDate(0, 0, day)
		created := 0
	routes:
		for _, route := range bound {
			for _, slot := range gen.ForDay(date) {
				if dailyQuota > 0 && created >= dailyQuota {
					break routes
				}
				if !guard.allow(route.Interstate()) {
					short := alloc.Shortfall{
						DepotID:  depot.ID,
						RouteID:  route.ID,
						Date:     date,
						Slot:     slot.Start,
						Resource: pool.KindInterstate,
						Reason:   "interstate budget spent",
					}
					res.shortfalls = append(res.shortfalls, short)
					shortfallsTotal.WithLabelValues(depot.ID, string(short.Resource)).Inc()
					m.publish(events.Shortfall{
						DepotID:  short.DepotID,
						RouteID:  short.RouteID,
						Date:     short.Date,
						Slot:     short.Slot,
						Resource: string(short.Resource),
					})
					continue
				}
				tup := alloc.Tuple{Route: route, Date: date, Slot: slot}
				next, trip, short, err := allocator.Allocate(st, tup, nowTime)
				st = next
				if err != nil {
					m.log.Errorf("depot %s: rejecting record: %v", depot.ID, err)
					res.failed++
					continue
				}
				if short != nil {
					res.shortfalls = append(res.shortfalls, *short)
					shortfallsTotal.WithLabelValues(depot.ID, string(short.Resource)).Inc()
					m.publish(events.Shortfall{
						DepotID:  short.DepotID,
						RouteID:  short.RouteID,
						Date:     short.Date,
						Slot:     short.Slot,
						Resource: string(short.Resource),
					})
					continue
				}
				res.trips = append(res.trips, *trip)
				created++
				tripsCreated.WithLabelValues(depot.ID, string(trip.FareClass)).Inc()
			}
		}
	}
	return res
}

// persist groups trips by depot and batch-inserts them, retrying failed
// records once before counting them lost.
func (m *Manager) persist(ctx context.Context, all []model.Trip, sum *Summary) error {
	byDepot := make(map[string][]model.Trip)
	var order []string
	for _, t := range all {
		if _, ok := byDepot[t.DepotID]; !ok {
			order = append(order, t.DepotID)
		}
		byDepot[t.DepotID] = append(byDepot[t.DepotID], t)
	}
	for _, depotID := range order {
		batch := byDepot[depotID]
		inserted, failed, err := m.trips.InsertBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("sched: persisting depot %s: %w", depotID, err)
		}
		if len(failed) > 0 {
			retry := make([]model.Trip, 0, len(failed))
			for _, f := range failed {
				m.log.Warnf("depot %s: retrying trip %s: %s", depotID, f.Trip.Code, f.Err)
				retry = append(retry, f.Trip)
			}
			n, still, rerr := m.trips.InsertBatch(ctx, retry)
			if rerr != nil {
				return fmt.Errorf("sched: persisting depot %s: %w", depotID, rerr)
			}
			inserted += n
			for _, f := range still {
				m.log.Errorf("depot %s: dropping trip %s: %s", depotID, f.Trip.Code, f.Err)
			}
			sum.Failed += len(still)
			persistFailures.Add(float64(len(still)))
		}
		m.publish(events.TripsPersisted{DepotID: depotID, Inserted: inserted, Failed: len(batch) - inserted})
	}
	return nil
}

// record forwards the run to the configured sinks. Sink trouble is logged
// and otherwise ignored.
func (m *Manager) record(all []model.Trip, sum Summary, depots int, at time.Time) {
	evs := make([]metrics.TripEvent, 0, len(all))
	for _, t := range all {
		evs = append(evs, metrics.TripEvent{
			TripID:    t.ID,
			DepotID:   t.DepotID,
			RouteID:   t.RouteID,
			BusID:     t.BusID,
			SlotKind:  t.SlotKind,
			FareClass: string(t.FareClass),
			Fare:      t.Fare,
			Capacity:  t.Capacity,
			Date:      t.ServiceDate,
		})
	}
	if err := m.sink.RecordTrips(evs); err != nil {
		m.log.Warnf("recording trips: %v", err)
	}
	if err := m.sink.RecordRun(metrics.RunEvent{
		TripsCreated: sum.TripsCreated,
		Running:      sum.Running,
		Shortfalls:   len(sum.Shortfalls),
		Failed:       sum.Failed,
		Depots:       depots,
		Elapsed:      sum.Elapsed,
		Time:         at,
	}); err != nil {
		m.log.Warnf("recording run: %v", err)
	}
}

func (m *Manager) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

// selectDepots restricts the roster to the requested ids. Asking for a
// depot the roster does not know is a configuration error.
func selectDepots(depots []model.Depot, ids []string) ([]model.Depot, error) {
	if len(ids) == 0 {
		return depots, nil
	}
	byID := make(map[string]model.Depot, len(depots))
	for _, d := range depots {
		byID[d.ID] = d
	}
	out := make([]model.Depot, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("sched: %w: %s", ErrDepotNotFound, id)
		}
		out = append(out, d)
	}
	return out, nil
}

// depotSeed derives a stable per-depot seed component so parallel workers
// draw independent, reproducible streams.
func depotSeed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
