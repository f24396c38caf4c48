package sched

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/nikhiltv/tripforge/core/model"
)

// depotQuotas splits a daily trip target across depots proportionally to
// their bus counts, using largest-remainder rounding so the shares sum to
// the target exactly. A zero target returns nil, meaning no cap.
func depotQuotas(depots []model.Depot, busesByDepot map[string]int, target int) map[string]int {
	if target <= 0 || len(depots) == 0 {
		return nil
	}
	counts := make([]float64, len(depots))
	for i, d := range depots {
		n := d.BusCount
		if n == 0 {
			n = busesByDepot[d.ID]
		}
		counts[i] = float64(n)
	}
	total := floats.Sum(counts)
	if total == 0 {
		return nil
	}

	type share struct {
		idx  int
		frac float64
	}
	quotas := make(map[string]int, len(depots))
	shares := make([]share, len(depots))
	assigned := 0
	for i, d := range depots {
		exact := counts[i] / total * float64(target)
		q := int(exact)
		quotas[d.ID] = q
		assigned += q
		shares[i] = share{idx: i, frac: exact - float64(q)}
	}
	sort.Slice(shares, func(a, b int) bool {
		if shares[a].frac != shares[b].frac {
			return shares[a].frac > shares[b].frac
		}
		return shares[a].idx < shares[b].idx
	})
	for i := 0; assigned < target && i < len(shares); i++ {
		quotas[depots[shares[i].idx].ID]++
		assigned++
	}
	return quotas
}

// interstateQuotas splits the horizon-wide interstate budget across depots
// the same way depotQuotas splits the daily target. The partition is fixed
// before workers start, so which depot spends the budget never depends on
// goroutine interleaving and equal seeds keep producing equal schedules.
// A zero daily target returns nil, meaning no cap.
func interstateQuotas(depots []model.Depot, busesByDepot map[string]int, dailyTarget, horizonDays int, ratio float64) map[string]int {
	if dailyTarget <= 0 {
		return nil
	}
	budget := int(float64(dailyTarget*horizonDays) * ratio)
	q := depotQuotas(depots, busesByDepot, budget)
	if q == nil {
		// An empty budget still caps every depot at zero.
		q = map[string]int{}
	}
	return q
}

// ratioGuard caps one depot's interstate allocations against its share of
// the pre-partitioned run budget. Each worker owns its guard, so no lock.
type ratioGuard struct {
	maxInter   int
	interstate int
	local      int
	unlimited  bool
}

func newRatioGuard(quotas map[string]int, depotID string) *ratioGuard {
	if quotas == nil {
		return &ratioGuard{unlimited: true}
	}
	return &ratioGuard{maxInter: quotas[depotID]}
}

// allow reports whether a trip of the given class may proceed, counting it
// when allowed.
func (g *ratioGuard) allow(interstate bool) bool {
	if !interstate {
		g.local++
		return true
	}
	if !g.unlimited && g.interstate >= g.maxInter {
		return false
	}
	g.interstate++
	return true
}
