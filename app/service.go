// Package app wires configuration, stores, sinks and the scheduling
// manager into a runnable service.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikhiltv/tripforge/config"
	"github.com/nikhiltv/tripforge/core/crewbind"
	coremetrics "github.com/nikhiltv/tripforge/core/metrics"
	"github.com/nikhiltv/tripforge/core/sched"
	"github.com/nikhiltv/tripforge/infra/logger"
	"github.com/nikhiltv/tripforge/infra/metrics"
	"github.com/nikhiltv/tripforge/infra/notify"
	"github.com/nikhiltv/tripforge/infra/store"
	"github.com/nikhiltv/tripforge/internal/eventbus"
)

// Service orchestrates scheduling runs against the configured stores.
type Service struct {
	Manager *sched.Manager

	roster      *store.MemoryStore
	trips       store.TripStore
	bus         eventbus.EventBus
	notifier    notify.Notifier
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	if cfg.Logging.Level != "" {
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}

	roster, err := store.LoadRosterFile(cfg.Store.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}

	var trips store.TripStore
	switch cfg.Store.Backend {
	case "sqlite":
		trips, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("trip store: %w", err)
		}
	case "memory":
		trips = roster
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	manager, err := sched.NewManager(cfg.Scheduling, roster, trips, sink, bus, logg)
	if err != nil {
		return nil, fmt.Errorf("schedule manager: %w", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.Enabled {
		n, err := notify.NewMQTTNotifier(cfg.Notify)
		if err != nil {
			logg.Warnf("notifier unavailable, updates disabled: %v", err)
		} else {
			notifier = n
		}
	}

	return &Service{
		Manager:     manager,
		roster:      roster,
		trips:       trips,
		bus:         bus,
		notifier:    notifier,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run executes one regeneration and announces the result.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		addr := s.promPort
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	sum, err := s.Manager.Run(ctx)
	if err != nil {
		return err
	}
	if err := s.notifier.PublishUpdate(notify.Update{
		TripsCreated: sum.TripsCreated,
		Running:      sum.Running,
		Shortfalls:   len(sum.Shortfalls),
		Depots:       len(sum.PerDepot),
		At:           time.Now(),
	}); err != nil {
		s.log.Warnf("publishing update: %v", err)
	}
	return nil
}

// BindCrew runs the crew-to-vehicle binder across the roster and returns
// one result per depot. A non-empty depotID restricts the pass to that
// depot.
func (s *Service) BindCrew(ctx context.Context, depotID string, opts crewbind.Options) ([]crewbind.Result, error) {
	depots, err := s.roster.Depots(ctx)
	if err != nil {
		return nil, err
	}
	buses, err := s.roster.Buses(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.roster.Drivers(ctx)
	if err != nil {
		return nil, err
	}
	conductors, err := s.roster.Conductors(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]crewbind.Result, 0, len(depots))
	for _, d := range depots {
		if depotID != "" && d.ID != depotID {
			continue
		}
		res := crewbind.Run(d, buses, drivers, conductors, opts, time.Now(), s.log)
		results = append(results, res)
	}
	return results, nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.notifier.Close()
	s.bus.Close()
	return s.trips.Close()
}
