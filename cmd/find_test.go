//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givecare/resource-matcher/internal/engine"
	"github.com/givecare/resource-matcher/internal/matcher"
	"github.com/givecare/resource-matcher/internal/model"
)

var testNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newFindCmd(t *testing.T, flags map[string]string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "find"}
	defineFindFlags(cmd)
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestQueryFromFlags(t *testing.T) {
	cmd, _ := newFindCmd(t, map[string]string{
		"zip":      " 10001 ",
		"zones":    "emotional, physical,,",
		"bands":    "crisis",
		"category": "respite",
		"limit":    "3",
	})

	q := queryFromFlags(cmd)
	assert.Equal(t, " 10001 ", q.ZIP)
	assert.Equal(t, []string{"emotional", "physical"}, q.Zones)
	assert.Equal(t, []string{"crisis"}, q.Bands)
	require.NotNil(t, q.Category)
	assert.Equal(t, "respite", *q.Category)
	assert.Equal(t, 3, q.Limit)
}

func TestQueryFromFlags_Defaults(t *testing.T) {
	cmd, _ := newFindCmd(t, map[string]string{"zip": "10001"})

	q := queryFromFlags(cmd)
	assert.Nil(t, q.Category)
	assert.Empty(t, q.Zones)
	assert.Empty(t, q.Bands)
	assert.Zero(t, q.Limit)
}

func TestRunFind_JSON(t *testing.T) {
	useConfig(t)
	cmd, buf := newFindCmd(t, map[string]string{"zip": "10001", "format": "json"})

	require.NoError(t, runFind(cmd, nil))

	var out engine.Formatted
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, matcher.StateZIPMatch, out.State)
	assert.Equal(t, engine.Disclosure, out.Disclosure)
	assert.NotEmpty(t, out.QueryID)
	require.Len(t, out.Resources, 1)
	assert.Equal(t, "r-voucher", out.Resources[0].Resource.ID)
	assert.Equal(t, "NYC Respite Vouchers", out.Resources[0].Program.Name)
	require.NotNil(t, out.Resources[0].Facility)
	assert.Equal(t, "f-chelsea", out.Resources[0].Facility.ID)
	assert.True(t, strings.HasPrefix(out.Resources[0].Freshness, "verified"))
}

func TestRunFind_CategoryFallsThroughTiers(t *testing.T) {
	useConfig(t)
	cmd, buf := newFindCmd(t, map[string]string{"zip": "10001", "category": "helpline", "format": "json"})

	require.NoError(t, runFind(cmd, nil))

	var out engine.Formatted
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, matcher.StateNationalMatch, out.State)
	require.Len(t, out.Resources, 1)
	assert.Equal(t, "r-helpline", out.Resources[0].Resource.ID)
	assert.Equal(t, "not yet verified", out.Resources[0].Freshness)
}

func TestRunFind_Table(t *testing.T) {
	useConfig(t)
	cmd, buf := newFindCmd(t, map[string]string{"zip": "10025"})

	require.NoError(t, runFind(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "Match: ZIP_CLUSTER_OR_STATE_MATCH")
	assert.Contains(t, out, "Respite voucher intake")
	assert.Contains(t, out, "statewide")
	assert.Contains(t, out, engine.Disclosure)
}

func TestRunFind_CSVToFile(t *testing.T) {
	useConfig(t)
	path := filepath.Join(t.TempDir(), "results.csv")
	cmd, buf := newFindCmd(t, map[string]string{"zip": "94110", "format": "csv", "output": path})

	require.NoError(t, runFind(cmd, nil))
	assert.Empty(t, buf.String())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "resource_id", records[0][1])
	assert.Equal(t, "r-helpline", records[1][1])
	assert.Equal(t, "national", records[1][5])
}

func TestRunFind_UnsupportedFormat(t *testing.T) {
	useConfig(t)
	cmd, _ := newFindCmd(t, map[string]string{"zip": "10001", "format": "xml"})

	err := runFind(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestRunFind_InvalidConfig(t *testing.T) {
	c := useConfig(t)
	c.Store.Driver = "bogus"
	cmd, _ := newFindCmd(t, map[string]string{"zip": "10001"})

	err := runFind(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestRunFind_InvalidScoringWeights(t *testing.T) {
	c := useConfig(t)
	c.Scoring.Weights.ZoneMatch = 0.9
	cmd, _ := newFindCmd(t, map[string]string{"zip": "10001"})

	err := runFind(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights should sum to 1")
}

func TestRunFind_MissingSnapshot(t *testing.T) {
	c := useConfig(t)
	c.Store.SnapshotPath = filepath.Join(t.TempDir(), "missing.yaml")
	cmd, _ := newFindCmd(t, map[string]string{"zip": "10001"})

	err := runFind(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open catalog")
}

func TestWriteResultsTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	out := engine.Format(&engine.Result{State: matcher.StateNationalUnfiltered}, testNow)

	require.NoError(t, writeResults(&buf, out, "table"))
	assert.Contains(t, buf.String(), "Match: NATIONAL_UNFILTERED")
	assert.Contains(t, buf.String(), "No resources found.")
}

func TestWriteResultsTable_FallsBackToID(t *testing.T) {
	var buf bytes.Buffer
	out := engine.Format(&engine.Result{
		State: matcher.StateZIPMatch,
		Resources: []model.RankedResource{{
			Resource: model.Resource{ID: "r-untitled"},
			Program:  model.Program{Name: strings.Repeat("x", 45)},
			Area:     model.ServiceArea{Type: model.AreaZIP},
			Score:    42,
		}},
	}, testNow)

	require.NoError(t, writeResults(&buf, out, "table"))
	assert.Contains(t, buf.String(), "r-untitled")
	assert.Contains(t, buf.String(), strings.Repeat("x", 27)+"...")
	assert.Contains(t, buf.String(), "42")
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Nil(t, splitAndTrim(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a,, b "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
