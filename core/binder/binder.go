// Package binder resolves which routes a depot can service.
package binder

import (
	"strings"

	"github.com/nikhiltv/tripforge/core/model"
)

// Mode selects the matching rule.
type Mode string

const (
	// ModeOwner matches routes whose owning depot reference equals the depot.
	ModeOwner Mode = "owner"
	// ModeDistrict matches routes whose origin district equals the depot's
	// district, the rule used by district-organised operators.
	ModeDistrict Mode = "district"
)

// RoutesFor returns the active routes visible to the depot under the given
// mode. An empty result is not an error; the caller skips the depot with a
// diagnostic.
func RoutesFor(depot model.Depot, routes []model.Route, mode Mode) []model.Route {
	var out []model.Route
	for _, r := range routes {
		if r.Status != model.RouteActive {
			continue
		}
		switch mode {
		case ModeDistrict:
			if strings.EqualFold(strings.TrimSpace(r.OriginDistrict), strings.TrimSpace(depot.District)) {
				out = append(out, r)
			}
		default:
			if r.DepotID == depot.ID {
				out = append(out, r)
			}
		}
	}
	return out
}
