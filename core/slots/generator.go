// Package slots produces candidate departure times across a scheduling
// horizon. Two policies are supported: a fixed list of clock times and a
// peak-weighted random draw from named hour buckets. All randomness flows
// through an injected generator so runs are reproducible for a fixed seed.
package slots

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy selects how departure times are produced.
type Policy string

const (
	PolicyFixed Policy = "fixed"
	PolicyPeak  Policy = "peak"
)

// Bucket is a named hour range start times may be drawn from.
type Bucket struct {
	Name      string `json:"name"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

// DefaultBuckets mirrors the morning/noon/evening peak windows used for
// randomized departures.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Name: "morning", StartHour: 5, EndHour: 10},
		{Name: "noon", StartHour: 10, EndHour: 16},
		{Name: "evening", StartHour: 16, EndHour: 22},
	}
}

// defaultMinuteGrid keeps random departures on a realistic timetable grid.
var defaultMinuteGrid = []int{0, 10, 15, 20, 30, 40, 45, 50}

// Slot is one candidate departure.
type Slot struct {
	Date       time.Time
	Start      string // "HH:MM"
	Kind       string
	Multiplier float64
}

// Config drives the generator.
type Config struct {
	Policy      Policy   `json:"policy"`
	FixedTimes  []string `json:"fixed_times"`
	PerRouteDay int      `json:"per_route_day"`
	Buckets     []Bucket `json:"buckets"`
	MinuteGrid  []int    `json:"minute_grid"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyFixed
	}
	if len(c.FixedTimes) == 0 {
		c.FixedTimes = []string{"06:00", "12:00", "18:00"}
	}
	if c.PerRouteDay <= 0 {
		c.PerRouteDay = len(c.FixedTimes)
	}
	if len(c.Buckets) == 0 {
		c.Buckets = DefaultBuckets()
	}
	if len(c.MinuteGrid) == 0 {
		c.MinuteGrid = defaultMinuteGrid
	}
}

// Validate rejects configurations that cannot produce slots.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyFixed:
		if len(c.FixedTimes) == 0 {
			return errors.New("slots: fixed policy requires at least one time")
		}
		for _, ft := range c.FixedTimes {
			if _, _, err := parseClock(ft); err != nil {
				return fmt.Errorf("slots: %w", err)
			}
		}
	case PolicyPeak:
		if c.PerRouteDay <= 0 {
			return errors.New("slots: peak policy requires per_route_day > 0")
		}
		for _, b := range c.Buckets {
			if b.StartHour < 0 || b.EndHour > 24 || b.StartHour >= b.EndHour {
				return fmt.Errorf("slots: invalid bucket %q [%d,%d)", b.Name, b.StartHour, b.EndHour)
			}
		}
	default:
		return fmt.Errorf("slots: unknown policy %q", c.Policy)
	}
	return nil
}

// Generator emits departure slots for service dates.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New builds a Generator. The rng must not be shared across concurrent
// generators; each depot worker owns its own.
func New(cfg Config, rng *rand.Rand) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("slots: nil rng")
	}
	return &Generator{cfg: cfg, rng: rng}, nil
}

// ForDay returns the departure slots for one service date.
func (g *Generator) ForDay(date time.Time) []Slot {
	n := g.cfg.PerRouteDay
	out := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		var start string
		switch g.cfg.Policy {
		case PolicyFixed:
			start = g.cfg.FixedTimes[i%len(g.cfg.FixedTimes)]
		case PolicyPeak:
			start = g.randomPeakStart()
		}
		kind, mult := Classify(start)
		out = append(out, Slot{Date: date, Start: start, Kind: kind, Multiplier: mult})
	}
	return out
}

// randomPeakStart draws an hour from a random bucket and snaps the minutes
// onto the timetable grid.
func (g *Generator) randomPeakStart() string {
	b := g.cfg.Buckets[g.rng.Intn(len(g.cfg.Buckets))]
	hour := b.StartHour + g.rng.Intn(b.EndHour-b.StartHour)
	minute := g.cfg.MinuteGrid[g.rng.Intn(len(g.cfg.MinuteGrid))]
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// EndTime adds a route duration to a start clock, rolling over midnight.
// The returned clock belongs to the same operating day even when it falls on
// the next calendar date.
func EndTime(start string, durationMin int) (string, error) {
	if durationMin <= 0 {
		return "", fmt.Errorf("slots: duration must be positive, got %d", durationMin)
	}
	hh, mm, err := parseClock(start)
	if err != nil {
		return "", err
	}
	total := hh*60 + mm + durationMin
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60), nil
}

func parseClock(s string) (int, int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	return hh, mm, nil
}
