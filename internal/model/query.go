package model

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// BandCrisis is the only risk band that affects scoring.
const BandCrisis = "crisis"

// DefaultLimit is the result count used when a caller passes no limit.
const DefaultLimit = 5

// Query is a single resource-matching request.
type Query struct {
	ZIP      string   `json:"zip"`
	Zones    []string `json:"zones,omitempty"`
	Bands    []string `json:"bands,omitempty"`
	Category *string  `json:"category,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// HasBand reports whether band appears in the query's risk bands.
func (q Query) HasBand(band string) bool {
	want := NormalizeToken(band)
	for _, b := range q.Bands {
		if NormalizeToken(b) == want {
			return true
		}
	}
	return false
}

// CategoryFilter returns the normalized category, or "" when none was supplied.
func (q Query) CategoryFilter() string {
	if q.Category == nil {
		return ""
	}
	return NormalizeToken(*q.Category)
}

// ScoreBreakdown records how a score was assembled.
type ScoreBreakdown struct {
	ZoneMatch         float64 `json:"zone_match"`
	VerificationScore float64 `json:"verification_score"`
	FreshnessScore    float64 `json:"freshness_score"`
	JurisdictionFit   float64 `json:"jurisdiction_fit"`
	OutcomeSignal     float64 `json:"outcome_signal"`
	Penalty           float64 `json:"penalty"`
	Raw               float64 `json:"raw"`
	CrisisBoosted     bool    `json:"crisis_boosted"`
}

// RankedResource bundles a scored Resource with its joined catalog records.
type RankedResource struct {
	Resource  Resource       `json:"resource"`
	Program   Program        `json:"program"`
	Provider  Provider       `json:"provider"`
	Facility  *Facility      `json:"facility,omitempty"`
	Area      ServiceArea    `json:"service_area"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// NormalizeToken trims and case-folds a zone, band or category token.
func NormalizeToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

// NormalizeTokens folds, drops empties and de-duplicates, returning a sorted set.
func NormalizeTokens(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		n := NormalizeToken(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
