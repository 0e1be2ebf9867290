// Package geo derives tiered location candidates from a caller's ZIP code.
package geo

import (
	"strings"

	"go.uber.org/zap"
)

// minZIPLength is the shortest input that still yields ZIP-level candidates.
const minZIPLength = 3

// Location holds the candidates for each geographic tier. Empty strings mean
// the tier has no candidate; the national tier is always available.
type Location struct {
	ZIP   string `json:"zip,omitempty"`
	ZIP3  string `json:"zip3,omitempty"`
	State string `json:"state,omitempty"`
}

// HasZIP reports whether ZIP and ZIP-cluster candidates were produced.
func (l Location) HasZIP() bool { return l.ZIP != "" }

// HasState reports whether a state candidate was produced.
func (l Location) HasState() bool { return l.State != "" }

// Resolve turns a raw ZIP string into tier candidates. Malformed or short
// input is not an error: it simply yields fewer candidates. Input whose first
// three bytes are not ASCII digits yields only the national tier.
func Resolve(zip string) Location {
	zip = strings.TrimSpace(zip)
	if len(zip) < minZIPLength || !digitPrefix(zip) {
		return Location{}
	}

	loc := Location{
		ZIP:  zip,
		ZIP3: zip[:minZIPLength],
	}
	if state, ok := StateForPrefix(loc.ZIP3); ok {
		loc.State = state
	} else {
		zap.L().Debug("geo: no state for zip prefix", zap.String("zip3", loc.ZIP3))
	}
	return loc
}

func digitPrefix(s string) bool {
	for i := range minZIPLength {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
