// Package ranker orders scored resources and trims them to the caller's limit.
package ranker

import (
	"cmp"
	"slices"

	"github.com/givecare/resource-matcher/internal/model"
)

// Rank sorts by score descending, then cached scoreRbi descending (absent
// sorts last), then resource id ascending. Duplicate resource ids keep their
// best-ranked entry. A non-positive limit means model.DefaultLimit. The input
// is not modified.
func Rank(scored []model.RankedResource, limit int) []model.RankedResource {
	if limit <= 0 {
		limit = model.DefaultLimit
	}

	sorted := slices.Clone(scored)
	slices.SortStableFunc(sorted, compare)

	seen := make(map[string]bool, len(sorted))
	out := make([]model.RankedResource, 0, min(limit, len(sorted)))
	for _, r := range sorted {
		if len(out) == limit {
			break
		}
		if seen[r.Resource.ID] {
			continue
		}
		seen[r.Resource.ID] = true
		out = append(out, r)
	}
	return out
}

func compare(a, b model.RankedResource) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := compareCached(a.Resource.ScoreRBI, b.Resource.ScoreRBI); c != 0 {
		return c
	}
	return cmp.Compare(a.Resource.ID, b.Resource.ID)
}

// compareCached orders present values descending and nil after any value.
func compareCached(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*b, *a)
	}
}
