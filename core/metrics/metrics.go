package metrics

import "time"

// TripEvent represents one created trip to be recorded for observability.
type TripEvent struct {
	TripID    string
	DepotID   string
	RouteID   string
	BusID     string
	SlotKind  string
	FareClass string
	Fare      float64
	Capacity  int
	Date      time.Time
}

// RunEvent summarises a completed scheduling run.
type RunEvent struct {
	TripsCreated int
	Running      int
	Shortfalls   int
	Failed       int
	Depots       int
	Elapsed      time.Duration
	Time         time.Time
}

// TripRecorder records trips emitted by the allocator.
type TripRecorder interface {
	RecordTrips(events []TripEvent) error
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// Sink is the combined recording interface wired into the manager.
type Sink interface {
	TripRecorder
	RunRecorder
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordTrips([]TripEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error      { return nil }

// Config holds sink configuration shared by the infra implementations.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "2112"
	}
	if c.InfluxBucket == "" {
		c.InfluxBucket = "tripforge"
	}
}
