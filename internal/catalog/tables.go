package catalog

import (
	"github.com/givecare/resource-matcher/internal/db"
	"github.com/givecare/resource-matcher/internal/model"
)

// Column lists shared by the SQL stores, in insert order.
var (
	providerColumns = []string{"id", "name"}
	programColumns  = []string{"id", "provider_id", "name", "pressure_zones", "resource_category"}
	areaColumns     = []string{"id", "program_id", "type", "geo_codes"}
	facilityColumns = []string{"id", "name", "address", "phone"}
	resourceColumns = []string{
		"id", "program_id", "facility_id", "title", "verification_status", "last_verified_date",
		"jurisdiction_level", "success_count", "issue_count", "broken_link", "bounce_count",
		"primary_url", "score_rbi",
	}
)

// snapshotTables flattens snap into rows per table. Values keep their Go
// types; nil pointers become NULL.
func snapshotTables(snap *Snapshot) []db.Table {
	providers := db.Table{Name: "providers", Columns: providerColumns}
	for _, p := range snap.Providers {
		providers.Rows = append(providers.Rows, []any{p.ID, p.Name})
	}

	programs := db.Table{Name: "programs", Columns: programColumns}
	for _, p := range snap.Programs {
		programs.Rows = append(programs.Rows, []any{p.ID, p.ProviderID, p.Name, nonNil(p.PressureZones), nonNil(p.ResourceCategory)})
	}

	areas := db.Table{Name: "service_areas", Columns: areaColumns}
	for _, a := range snap.ServiceAreas {
		areas.Rows = append(areas.Rows, []any{a.ID, a.ProgramID, string(a.Type), nonNil(a.GeoCodes)})
	}

	facilities := db.Table{Name: "facilities", Columns: facilityColumns}
	for _, f := range snap.Facilities {
		facilities.Rows = append(facilities.Rows, []any{f.ID, f.Name, f.Address, f.Phone})
	}

	resources := db.Table{Name: "resources", Columns: resourceColumns}
	for _, r := range snap.Resources {
		status := r.VerificationStatus
		if status == "" {
			status = model.VerificationUnverified
		}
		resources.Rows = append(resources.Rows, []any{
			r.ID, r.ProgramID, r.FacilityID, r.Title, string(status), r.LastVerifiedDate,
			r.JurisdictionLevel, r.SuccessCount, r.IssueCount, r.BrokenLink, r.BounceCount,
			r.PrimaryURL, r.ScoreRBI,
		})
	}

	return []db.Table{providers, programs, areas, facilities, resources}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
