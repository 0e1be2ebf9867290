// Package scorer computes the 0-100 relevance score (RBI) of a Resource for a
// caregiver query.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/givecare/resource-matcher/internal/config"
)

// Default composite weights (sum = 1).
const (
	DefaultZoneMatchWeight    = 0.30
	DefaultVerificationWeight = 0.25
	DefaultFreshnessWeight    = 0.20
	DefaultJurisdictionWeight = 0.15
	DefaultOutcomeWeight      = 0.10
)

// DefaultScoringConfig returns a config.ScoringConfig with the production
// weights and penalty terms.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: config.ScoringWeights{
			ZoneMatch:    DefaultZoneMatchWeight,
			Verification: DefaultVerificationWeight,
			Freshness:    DefaultFreshnessWeight,
			Jurisdiction: DefaultJurisdictionWeight,
			Outcome:      DefaultOutcomeWeight,
		},
		BrokenLinkPenalty: 0.2,
		BouncePenaltyPer:  0.02,
		BouncePenaltyCap:  0.2,
		CrisisMultiplier:  1.05,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScoringConfig) float64 {
	w := c.Weights
	return w.ZoneMatch + w.Verification + w.Freshness + w.Jurisdiction + w.Outcome
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := []struct {
		name string
		v    float64
	}{
		{"zone_match", c.Weights.ZoneMatch},
		{"verification", c.Weights.Verification},
		{"freshness", c.Weights.Freshness},
		{"jurisdiction", c.Weights.Jurisdiction},
		{"outcome", c.Weights.Outcome},
	}
	for _, w := range weights {
		if w.v < 0 {
			errs = append(errs, fmt.Sprintf("weights.%s must be >= 0", w.name))
		}
	}

	// Weights should sum to 1 (allow tolerance for floating-point).
	if sum := WeightSum(c); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}

	if c.BrokenLinkPenalty < 0 || c.BrokenLinkPenalty > 1 {
		errs = append(errs, "broken_link_penalty must be between 0 and 1")
	}
	if c.BouncePenaltyPer < 0 {
		errs = append(errs, "bounce_penalty_per must be >= 0")
	}
	if c.BouncePenaltyCap < 0 || c.BouncePenaltyCap > 1 {
		errs = append(errs, "bounce_penalty_cap must be between 0 and 1")
	}
	if c.CrisisMultiplier < 1 {
		errs = append(errs, "crisis_multiplier must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
