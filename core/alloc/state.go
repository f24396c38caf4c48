package alloc

import (
	"math/rand"

	"github.com/nikhiltv/tripforge/core/model"
)

// State carries the run-scoped allocation counters: the trip sequence used
// for codes, the local/interstate tallies consulted by the quota guard, and
// the seeded generator behind fare-class picks. It is a value: callers pass
// it in and keep the returned copy.
type State struct {
	Seq        int
	Local      int
	Interstate int
	rng        *rand.Rand
}

// NewState creates a State seeded for reproducible fare-class selection.
func NewState(seed int64) State {
	return State{rng: rand.New(rand.NewSource(seed))}
}

// fareClass tags the trip. Interstate routes are always interstate; local
// trips are mostly standard with the occasional express, matching the
// operator's observed mix.
func (s *State) fareClass(r model.Route) model.FareClass {
	if r.Interstate() {
		return model.FareInterstate
	}
	if s.rng == nil {
		return model.FareStandard
	}
	if s.rng.Intn(3) == 2 {
		return model.FareExpress
	}
	return model.FareStandard
}
