package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givecare/resource-matcher/internal/matcher"
	"github.com/givecare/resource-matcher/internal/model"
)

func TestFreshnessLabel(t *testing.T) {
	tests := []struct {
		name string
		last *time.Time
		want string
	}{
		{"never verified", nil, "not yet verified"},
		{"same day", daysAgo(0), "verified today"},
		{"future date", daysAgo(-3), "verified today"},
		{"one day", daysAgo(1), "verified 1 day ago"},
		{"ten days", daysAgo(10), "verified 10 days ago"},
		{"over a year", daysAgo(400), "verified 400 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FreshnessLabel(tt.last, testNow))
		})
	}
}

func TestFormat(t *testing.T) {
	res := &Result{
		QueryID: "q-1",
		State:   matcher.StateZIPMatch,
		Resources: []model.RankedResource{
			{Resource: model.Resource{ID: "r-1", LastVerifiedDate: daysAgo(10)}, Score: 97},
			{Resource: model.Resource{ID: "r-2"}, Score: 60},
		},
	}

	out := Format(res, testNow)

	assert.Equal(t, "q-1", out.QueryID)
	assert.Equal(t, matcher.StateZIPMatch, out.State)
	assert.Equal(t, Disclosure, out.Disclosure)
	require.Len(t, out.Resources, 2)
	assert.Equal(t, "r-1", out.Resources[0].Resource.ID)
	assert.Equal(t, 97, out.Resources[0].Score)
	assert.Equal(t, "verified 10 days ago", out.Resources[0].Freshness)
	assert.Equal(t, "not yet verified", out.Resources[1].Freshness)
}

func TestFormat_EmptyResult(t *testing.T) {
	out := Format(&Result{State: matcher.StateNationalUnfiltered}, testNow)
	assert.NotNil(t, out.Resources)
	assert.Empty(t, out.Resources)
	assert.NotEmpty(t, out.Disclosure)
}
