package sched

import (
	"errors"
	"fmt"
	"time"

	"github.com/nikhiltv/tripforge/core/alloc"
	"github.com/nikhiltv/tripforge/core/binder"
	"github.com/nikhiltv/tripforge/core/lifecycle"
	"github.com/nikhiltv/tripforge/core/slots"
)

// Config defines one regeneration run.
type Config struct {
	// HorizonDays is the number of calendar days the run covers, starting
	// today.
	HorizonDays int `json:"horizon_days"`
	// Seed drives every random draw in the run. Equal seeds and equal
	// rosters produce identical schedules.
	Seed int64 `json:"seed"`
	// RunningLimit bounds how many of today's trips are promoted to
	// running. Zero means the lifecycle default.
	RunningLimit int `json:"running_limit"`
	// DailyTripTarget caps the trips generated per day across all depots,
	// shared proportionally to each depot's bus count. Zero disables the
	// cap.
	DailyTripTarget int `json:"daily_trip_target"`
	// InterstateRatio is the best-effort share of the daily target allowed
	// on interstate routes. Only meaningful with a DailyTripTarget.
	InterstateRatio float64 `json:"interstate_ratio"`
	// Workers bounds how many depots are processed in parallel. Zero means
	// one worker per depot.
	Workers int `json:"workers"`
	// Depots restricts the run to the listed depot ids. Empty means all.
	Depots []string `json:"depots"`
	// RunDate overrides the run's base date ("2006-01-02"). Empty means
	// today.
	RunDate string `json:"run_date"`

	BinderMode binder.Mode  `json:"binder_mode"`
	Slots      slots.Config `json:"slots"`
	Alloc      alloc.Config `json:"alloc"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.HorizonDays == 0 {
		c.HorizonDays = 30
	}
	if c.RunningLimit == 0 {
		c.RunningLimit = lifecycle.DefaultRunningLimit
	}
	if c.InterstateRatio == 0 {
		c.InterstateRatio = 0.05
	}
	if c.BinderMode == "" {
		c.BinderMode = binder.ModeOwner
	}
	c.Slots.SetDefaults()
}

// Validate rejects configurations that must abort the invocation.
func (c Config) Validate() error {
	if c.HorizonDays <= 0 {
		return errors.New("sched: horizon_days must be positive")
	}
	if c.InterstateRatio < 0 || c.InterstateRatio > 1 {
		return fmt.Errorf("sched: interstate_ratio %v out of [0,1]", c.InterstateRatio)
	}
	if c.DailyTripTarget < 0 {
		return errors.New("sched: daily_trip_target must not be negative")
	}
	if c.BinderMode != binder.ModeOwner && c.BinderMode != binder.ModeDistrict {
		return fmt.Errorf("sched: unknown binder_mode %q", c.BinderMode)
	}
	if c.RunDate != "" {
		if _, err := time.Parse("2006-01-02", c.RunDate); err != nil {
			return fmt.Errorf("sched: invalid run_date %q: %w", c.RunDate, err)
		}
	}
	if err := c.Slots.Validate(); err != nil {
		return err
	}
	return nil
}
