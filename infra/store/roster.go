package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikhiltv/tripforge/core/model"
)

// RosterFile is the on-disk roster snapshot: one document holding the
// depots, routes, fleet and staff a scheduling run reads from.
type RosterFile struct {
	Depots     []model.Depot     `json:"depots"`
	Routes     []model.Route     `json:"routes"`
	Buses      []model.Bus       `json:"buses"`
	Drivers    []model.Driver    `json:"drivers"`
	Conductors []model.Conductor `json:"conductors"`
}

// LoadRosterFile reads a roster snapshot and returns a seeded MemoryStore
// serving it.
func LoadRosterFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading roster: %w", err)
	}
	var rf RosterFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("store: parsing roster: %w", err)
	}
	s := NewMemoryStore()
	s.SeedRoster(rf.Depots, rf.Routes, rf.Buses, rf.Drivers, rf.Conductors)
	return s, nil
}
