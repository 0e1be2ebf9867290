package scorer

import (
	"math"
	"time"

	"github.com/givecare/resource-matcher/internal/model"
)

// Defaults used when scoring inputs are missing.
const (
	noZonePreferenceScore = 0.7
	unknownFreshnessScore = 0.4
	neutralOutcomeScore   = 0.5
	defaultJurisdiction   = 0.7
)

// Freshness window, in days.
const (
	freshDays = 30
	staleDays = 365
)

var verificationScores = map[model.VerificationStatus]float64{
	model.VerificationUnverified: 0.2,
	model.VerificationBasic:      0.6,
	model.VerificationFull:       1.0,
}

// scoreZoneMatch returns the fraction of requested zones the program covers.
// requested must already be normalized (see model.NormalizeTokens).
func scoreZoneMatch(requested, programZones []string) float64 {
	if len(requested) == 0 {
		return noZonePreferenceScore
	}
	offered := model.NormalizeTokens(programZones)
	if len(offered) == 0 {
		return 0
	}
	set := make(map[string]bool, len(offered))
	for _, z := range offered {
		set[z] = true
	}
	var hits int
	for _, z := range requested {
		if set[z] {
			hits++
		}
	}
	return float64(hits) / float64(len(requested))
}

// scoreVerification maps a verification status to its trust score.
func scoreVerification(status model.VerificationStatus) float64 {
	if v, ok := verificationScores[status]; ok {
		return v
	}
	return verificationScores[model.VerificationUnverified]
}

// scoreFreshness decays linearly from 1 at 30 days to 0 at 365 days.
func scoreFreshness(lastVerified *time.Time, now time.Time) float64 {
	if lastVerified == nil || lastVerified.IsZero() {
		return unknownFreshnessScore
	}
	ageDays := now.Sub(*lastVerified).Hours() / 24
	switch {
	case ageDays <= freshDays:
		return 1.0
	case ageDays >= staleDays:
		return 0.0
	default:
		return 1 - (ageDays-freshDays)/(staleDays-freshDays)
	}
}

// scoreJurisdictionFit rates how well a resource's jurisdiction level suits
// the coverage tier it was matched through.
func scoreJurisdictionFit(level *string, areaType model.AreaType) float64 {
	lvl := ""
	if level != nil {
		lvl = model.NormalizeToken(*level)
	}
	switch areaType {
	case model.AreaNational:
		if lvl == "national" {
			return 1.0
		}
	case model.AreaStatewide:
		if lvl == "state" || lvl == "federal" {
			return 0.9
		}
	case model.AreaCounty:
		if lvl == "county" || lvl == "state" {
			return 0.85
		}
	case model.AreaZIPCluster:
		return 0.75
	}
	return defaultJurisdiction
}

// scoreOutcome returns the observed success ratio. Negative counts are
// treated as zero.
func scoreOutcome(success, issue int) float64 {
	s := math.Max(0, float64(success))
	i := math.Max(0, float64(issue))
	if s+i == 0 {
		return neutralOutcomeScore
	}
	return s / (s + i)
}

// penaltyFor sums the broken-link and bounce penalties.
func penaltyFor(brokenLink *bool, bounceCount *int, brokenPenalty, perBounce, bounceCap float64) float64 {
	var p float64
	if brokenLink != nil && *brokenLink {
		p += brokenPenalty
	}
	if bounceCount != nil && *bounceCount > 0 {
		p += math.Min(bounceCap, float64(*bounceCount)*perBounce)
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
