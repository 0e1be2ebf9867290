package engine

import (
	"fmt"
	"time"

	"github.com/givecare/resource-matcher/internal/matcher"
	"github.com/givecare/resource-matcher/internal/model"
)

// Disclosure accompanies every formatted result set.
const Disclosure = "Listings are matched automatically from a curated catalog. " +
	"Confirm eligibility and availability with the provider before relying on a resource."

// FormattedResource is a RankedResource with caller-facing text attached.
type FormattedResource struct {
	model.RankedResource
	Freshness string `json:"freshness"`
}

// Formatted is the caller-facing rendering of a Result.
type Formatted struct {
	QueryID    string              `json:"query_id"`
	State      matcher.State       `json:"state"`
	Disclosure string              `json:"disclosure"`
	Resources  []FormattedResource `json:"resources"`
}

// Format attaches the disclosure and a freshness label to each result.
func Format(res *Result, now time.Time) Formatted {
	out := Formatted{
		QueryID:    res.QueryID,
		State:      res.State,
		Disclosure: Disclosure,
		Resources:  make([]FormattedResource, 0, len(res.Resources)),
	}
	for _, r := range res.Resources {
		out.Resources = append(out.Resources, FormattedResource{
			RankedResource: r,
			Freshness:      FreshnessLabel(r.Resource.LastVerifiedDate, now),
		})
	}
	return out
}

// FreshnessLabel describes how long ago a resource was verified.
func FreshnessLabel(last *time.Time, now time.Time) string {
	if last == nil {
		return "not yet verified"
	}
	days := int(now.Sub(*last).Hours() / 24)
	switch {
	case days <= 0:
		return "verified today"
	case days == 1:
		return "verified 1 day ago"
	default:
		return fmt.Sprintf("verified %d days ago", days)
	}
}
