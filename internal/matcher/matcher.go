// Package matcher selects the narrowest geographic tier of ServiceAreas that
// covers a caller's location, widening toward national coverage on a miss.
package matcher

import (
	"slices"

	"github.com/givecare/resource-matcher/internal/geo"
	"github.com/givecare/resource-matcher/internal/model"
)

// State is a step of the degradation cascade.
type State string

// Cascade order. A transition fires only when the current state's candidate
// set is empty; NATIONAL_UNFILTERED is terminal.
const (
	StateZIPMatch           State = "ZIP_MATCH"
	StateZIPClusterOrState  State = "ZIP_CLUSTER_OR_STATE_MATCH"
	StateNationalMatch      State = "NATIONAL_MATCH"
	StateNationalUnfiltered State = "NATIONAL_UNFILTERED"
)

// States lists every cascade state in order.
var States = []State{StateZIPMatch, StateZIPClusterOrState, StateNationalMatch, StateNationalUnfiltered}

// Result is the outcome of a cascade: the state that produced candidates and
// the candidates themselves. Areas is empty only when the catalog holds no
// usable national coverage.
type Result struct {
	State State               `json:"state"`
	Areas []model.ServiceArea `json:"areas"`
}

// Empty reports whether the cascade ran out of tiers without candidates.
func (r Result) Empty() bool { return len(r.Areas) == 0 }

// Accept filters candidate areas inside a cascade state. It returns false for
// areas that must not count as candidates (category mismatch, dangling
// program reference).
type Accept func(area model.ServiceArea) bool

// Tiers holds the geographically matched areas split by cascade tier, in
// catalog order.
type Tiers struct {
	ZIP            []model.ServiceArea
	ClusterOrState []model.ServiceArea
	National       []model.ServiceArea
}

// All returns every matched area across tiers.
func (t Tiers) All() []model.ServiceArea {
	out := make([]model.ServiceArea, 0, len(t.ZIP)+len(t.ClusterOrState)+len(t.National))
	out = append(out, t.ZIP...)
	out = append(out, t.ClusterOrState...)
	return append(out, t.National...)
}

// Matches reports whether area covers loc at any tier.
func Matches(area model.ServiceArea, loc geo.Location) bool {
	return tierOf(area, loc) != tierNone
}

type tier int

const (
	tierNone tier = iota
	tierZIP
	tierClusterOrState
	tierNational
)

// tierOf returns the narrowest tier at which area covers loc.
func tierOf(area model.ServiceArea, loc geo.Location) tier {
	if loc.HasZIP() && slices.Contains(area.GeoCodes, loc.ZIP) {
		if area.Type == model.AreaNational {
			return tierNational
		}
		return tierZIP
	}
	switch area.Type {
	case model.AreaNational:
		return tierNational
	case model.AreaZIPCluster:
		if loc.HasZIP() && slices.Contains(area.GeoCodes, loc.ZIP3) {
			return tierClusterOrState
		}
	case model.AreaStatewide:
		if loc.HasState() && slices.Contains(area.GeoCodes, loc.State) {
			return tierClusterOrState
		}
	}
	return tierNone
}

// Partition assigns each area to the narrowest tier at which it covers loc.
// Areas that cover nothing are dropped.
func Partition(areas []model.ServiceArea, loc geo.Location) Tiers {
	var t Tiers
	for _, a := range areas {
		switch tierOf(a, loc) {
		case tierZIP:
			t.ZIP = append(t.ZIP, a)
		case tierClusterOrState:
			t.ClusterOrState = append(t.ClusterOrState, a)
		case tierNational:
			t.National = append(t.National, a)
		}
	}
	return t
}

// Match returns the narrowest non-empty tier for zip, falling back to every
// national area. It is Cascade with no filter.
func Match(areas []model.ServiceArea, zip string) Result {
	return Cascade(Partition(areas, geo.Resolve(zip)), nil)
}

// Cascade walks the degradation states over pre-partitioned tiers. accept
// applies in every state except NATIONAL_UNFILTERED, which takes all national
// areas that unfiltered accepts. A nil accept admits everything.
func Cascade(t Tiers, accept Accept) Result {
	return CascadeWith(t, accept, nil)
}

// CascadeWith is Cascade with a separate filter for the terminal state. The
// engine uses it to drop dangling references while ignoring the category.
func CascadeWith(t Tiers, accept, unfiltered Accept) Result {
	steps := []struct {
		state State
		areas []model.ServiceArea
		keep  Accept
	}{
		{StateZIPMatch, t.ZIP, accept},
		{StateZIPClusterOrState, t.ClusterOrState, accept},
		{StateNationalMatch, t.National, accept},
		{StateNationalUnfiltered, t.National, unfiltered},
	}

	for _, s := range steps {
		if got := filter(s.areas, s.keep); len(got) > 0 {
			return Result{State: s.state, Areas: got}
		}
	}
	return Result{State: StateNationalUnfiltered}
}

func filter(areas []model.ServiceArea, keep Accept) []model.ServiceArea {
	if keep == nil {
		return slices.Clone(areas)
	}
	var out []model.ServiceArea
	for _, a := range areas {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Dedup collapses areas sharing (programId, type), keeping the first.
func Dedup(areas []model.ServiceArea) []model.ServiceArea {
	type key struct {
		programID string
		areaType  model.AreaType
	}
	seen := make(map[key]bool, len(areas))
	out := make([]model.ServiceArea, 0, len(areas))
	for _, a := range areas {
		k := key{a.ProgramID, a.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

// Representatives picks one area per program: the narrowest type, first in
// order on ties. Programs are returned in first-seen order.
func Representatives(areas []model.ServiceArea) []model.ServiceArea {
	index := make(map[string]int, len(areas))
	var out []model.ServiceArea
	for _, a := range areas {
		i, ok := index[a.ProgramID]
		if !ok {
			index[a.ProgramID] = len(out)
			out = append(out, a)
			continue
		}
		if a.Type.Narrowness() < out[i].Type.Narrowness() {
			out[i] = a
		}
	}
	return out
}
