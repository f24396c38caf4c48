package config

import (
	"fmt"
)

// StoreConfig selects where trips are persisted.
type StoreConfig struct {
	// Backend selects the trip store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the database file location for the sqlite backend.
	Path string `json:"path"`
	// RosterPath locates the roster snapshot consumed by scheduling runs.
	RosterPath string `json:"roster_path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "tripforge.db"
	}
	if c.RosterPath == "" {
		c.RosterPath = "roster.json"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
