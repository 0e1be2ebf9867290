package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givecare/resource-matcher/internal/model"
)

const fixturePath = "testdata/catalog.yaml"

func loadFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := LoadSnapshot(fixturePath)
	require.NoError(t, err)
	return snap
}

func TestLoadSnapshot(t *testing.T) {
	snap := loadFixture(t)

	require.Len(t, snap.Providers, 2)
	require.Len(t, snap.Programs, 2)
	require.Len(t, snap.ServiceAreas, 3)
	require.Len(t, snap.Facilities, 1)
	require.Len(t, snap.Resources, 2)

	assert.Equal(t, []string{"10001", "10002"}, snap.ServiceAreas[0].GeoCodes)
	assert.Equal(t, model.AreaNational, snap.ServiceAreas[2].Type)

	voucher := snap.Resources[0]
	require.NotNil(t, voucher.LastVerifiedDate)
	assert.True(t, voucher.LastVerifiedDate.Equal(time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, voucher.FacilityID)
	assert.Equal(t, "f-chelsea", *voucher.FacilityID)
	require.NotNil(t, voucher.BrokenLink)
	assert.False(t, *voucher.BrokenLink)
	require.NotNil(t, voucher.ScoreRBI)
	assert.InDelta(t, 91.5, *voucher.ScoreRBI, 1e-9)
	assert.Equal(t, model.VerificationFull, voucher.VerificationStatus)

	helpline := snap.Resources[1]
	assert.Nil(t, helpline.FacilityID)
	assert.Nil(t, helpline.LastVerifiedDate)
	assert.Nil(t, helpline.BrokenLink)
	require.NotNil(t, helpline.BounceCount)
	assert.Equal(t, 3, *helpline.BounceCount)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog: read snapshot")
}

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, snap.ServiceAreas)

	_, err = ParseSnapshot([]byte("programs:\n  - id: p1\n    colour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog: parse snapshot")

	_, err = ParseSnapshot([]byte("providers: [unterminated"))
	require.Error(t, err)
}

func TestSnapshotCheck_Clean(t *testing.T) {
	assert.Empty(t, loadFixture(t).Check())
}

func TestSnapshotCheck_Problems(t *testing.T) {
	ghost := "f-ghost"
	snap := &Snapshot{
		Providers: []model.Provider{{ID: "pv1"}, {ID: "pv1"}},
		Programs: []model.Program{
			{ID: "p1", ProviderID: "pv1"},
			{ID: "p2", ProviderID: "pv-missing"},
		},
		ServiceAreas: []model.ServiceArea{
			{ID: "a1", ProgramID: "p1", Type: model.AreaZIP},
			{ID: "a2", ProgramID: "p-missing", Type: model.AreaNational},
			{ID: "a3", ProgramID: "p1", Type: "galactic"},
		},
		Resources: []model.Resource{
			{ID: "r1", ProgramID: "p1", FacilityID: &ghost},
			{ID: "r2", ProgramID: "p-missing"},
			{ID: "r2", ProgramID: "p1"},
		},
	}

	var got []string
	for _, p := range snap.Check() {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{
		"provider pv1: duplicate id",
		"program p2: unknown provider pv-missing",
		"service_area a2: unknown program p-missing",
		"service_area a3: unknown type galactic",
		"resource r1: unknown facility f-ghost",
		"resource r2: unknown program p-missing",
		"resource r2: duplicate id",
	}, got)
}
