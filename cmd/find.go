package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/engine"
	"github.com/givecare/resource-matcher/internal/model"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find ranked resources for a ZIP code",
	Long: `Find ranked caregiver resources for a location.

The matcher tries ZIP-level service areas first, then ZIP clusters and
statewide coverage, then national programs. A category that matches nothing
falls back to every national program.

Examples:
  # Top 5 resources near 10001
  find --zip 10001

  # Emotional and physical strain, crisis band, respite only
  find --zip 10001 --zones emotional,physical --bands crisis --category respite

  # Export 20 results as CSV
  find --zip 94110 --limit 20 --format csv --output results.csv`,
	RunE: runFind,
}

func init() {
	defineFindFlags(findCmd)
	rootCmd.AddCommand(findCmd)
}

func defineFindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("zip", "", "caller ZIP code")
	f.String("zones", "", "comma-separated pressure zones (e.g., emotional,physical)")
	f.String("bands", "", "comma-separated risk bands (e.g., crisis)")
	f.String("category", "", "restrict to a resource category")
	f.Int("limit", 0, "maximum number of results (0=use config default)")
	f.String("format", "table", "output format: table, json or csv")
	f.String("output", "", "output file path (default: stdout)")
}

func runFind(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if !validFormat(format) {
		return eris.Errorf("find: unsupported format %q", format)
	}

	q := queryFromFlags(cmd)

	env, err := initEngine(ctx, "find", nil)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Engine.FindResources(ctx, q)
	if err != nil {
		return eris.Wrap(err, "find")
	}

	zap.L().Debug("find complete",
		zap.String("query_id", res.QueryID),
		zap.String("state", string(res.State)),
		zap.Int("results", len(res.Resources)),
	)

	outputPath, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "find: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	return writeResults(w, engine.Format(res, time.Now()), format)
}

func queryFromFlags(cmd *cobra.Command) model.Query {
	f := cmd.Flags()
	zip, _ := f.GetString("zip")
	zones, _ := f.GetString("zones")
	bands, _ := f.GetString("bands")
	limit, _ := f.GetInt("limit")

	q := model.Query{
		ZIP:   zip,
		Zones: splitAndTrim(zones),
		Bands: splitAndTrim(bands),
		Limit: limit,
	}
	if f.Changed("category") {
		category, _ := f.GetString("category")
		q.Category = &category
	}
	return q
}

func validFormat(format string) bool {
	switch format {
	case "table", "json", "csv":
		return true
	}
	return false
}

func writeResults(w io.Writer, out engine.Formatted, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "find: write JSON")
		}
		return nil
	case "csv":
		return writeResultsCSV(w, out)
	case "table":
		return writeResultsTable(w, out)
	default:
		return eris.Errorf("find: unsupported format %q", format)
	}
}

func writeResultsCSV(w io.Writer, out engine.Formatted) error {
	cw := csv.NewWriter(w)

	header := []string{"rank", "resource_id", "title", "program", "provider", "area_type", "score", "freshness", "url"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "find: write CSV header")
	}

	for i, r := range out.Resources {
		row := []string{
			strconv.Itoa(i + 1),
			r.Resource.ID,
			r.Resource.Title,
			r.Program.Name,
			r.Provider.Name,
			string(r.Area.Type),
			strconv.Itoa(r.Score),
			r.Freshness,
			deref(r.Resource.PrimaryURL),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "find: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "find: flush CSV")
}

func writeResultsTable(w io.Writer, out engine.Formatted) error {
	if _, err := fmt.Fprintf(w, "Match: %s\n\n", out.State); err != nil {
		return eris.Wrap(err, "find: write table header")
	}

	header := fmt.Sprintf("%-4s %-40s %-30s %-11s %5s  %s\n",
		"#", "Resource", "Program", "Coverage", "Score", "Freshness")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "find: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 110)); err != nil {
		return eris.Wrap(err, "find: write table separator")
	}

	if len(out.Resources) == 0 {
		if _, err := fmt.Fprintln(w, "No resources found."); err != nil {
			return eris.Wrap(err, "find: write table row")
		}
	}
	for i, r := range out.Resources {
		line := fmt.Sprintf("%-4d %-40s %-30s %-11s %5d  %s\n",
			i+1, truncate(resourceLabel(r.Resource), 40), truncate(r.Program.Name, 30),
			r.Area.Type, r.Score, r.Freshness)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "find: write table row")
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", out.Disclosure); err != nil {
		return eris.Wrap(err, "find: write disclosure")
	}
	return nil
}

func resourceLabel(r model.Resource) string {
	if r.Title != "" {
		return r.Title
	}
	return r.ID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
