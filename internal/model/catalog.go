// Package model defines the catalog records and query types shared by the matcher.
package model

import "time"

// AreaType is the coverage granularity a ServiceArea declares.
type AreaType string

const (
	AreaZIP        AreaType = "zip"
	AreaZIPCluster AreaType = "zip_cluster"
	AreaStatewide  AreaType = "statewide"
	AreaCounty     AreaType = "county"
	AreaNational   AreaType = "national"
)

// Narrowness orders area types from most to least specific. Unknown types
// sort after national.
func (t AreaType) Narrowness() int {
	switch t {
	case AreaZIP:
		return 0
	case AreaZIPCluster:
		return 1
	case AreaCounty:
		return 2
	case AreaStatewide:
		return 3
	case AreaNational:
		return 4
	default:
		return 5
	}
}

// VerificationStatus is the curator-assigned trust level of a Resource.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationBasic      VerificationStatus = "verified_basic"
	VerificationFull       VerificationStatus = "verified_full"
)

// Provider is the organization behind one or more Programs.
type Provider struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Program is a named offering owned by a Provider.
type Program struct {
	ID               string   `json:"id" yaml:"id"`
	ProviderID       string   `json:"provider_id" yaml:"provider_id"`
	Name             string   `json:"name" yaml:"name"`
	PressureZones    []string `json:"pressure_zones,omitempty" yaml:"pressure_zones"`
	ResourceCategory []string `json:"resource_category,omitempty" yaml:"resource_category"`
}

// HasCategory reports whether the program is tagged with category (case-folded).
func (p Program) HasCategory(category string) bool {
	want := NormalizeToken(category)
	if want == "" {
		return false
	}
	for _, c := range p.ResourceCategory {
		if NormalizeToken(c) == want {
			return true
		}
	}
	return false
}

// ServiceArea declares where a Program is available. GeoCodes are
// interpreted according to Type.
type ServiceArea struct {
	ID        string   `json:"id" yaml:"id"`
	ProgramID string   `json:"program_id" yaml:"program_id"`
	Type      AreaType `json:"type" yaml:"type"`
	GeoCodes  []string `json:"geo_codes,omitempty" yaml:"geo_codes"`
}

// Facility is a physical location a Resource may point at.
type Facility struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address"`
	Phone   string `json:"phone,omitempty" yaml:"phone"`
}

// Resource is a concrete listing under a Program.
type Resource struct {
	ID                 string             `json:"id" yaml:"id"`
	ProgramID          string             `json:"program_id" yaml:"program_id"`
	FacilityID         *string            `json:"facility_id,omitempty" yaml:"facility_id"`
	Title              string             `json:"title,omitempty" yaml:"title"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty" yaml:"verification_status"`
	LastVerifiedDate   *time.Time         `json:"last_verified_date,omitempty" yaml:"last_verified_date"`
	JurisdictionLevel  *string            `json:"jurisdiction_level,omitempty" yaml:"jurisdiction_level"`
	SuccessCount       int                `json:"success_count" yaml:"success_count"`
	IssueCount         int                `json:"issue_count" yaml:"issue_count"`
	BrokenLink         *bool              `json:"broken_link,omitempty" yaml:"broken_link"`
	BounceCount        *int               `json:"bounce_count,omitempty" yaml:"bounce_count"`
	PrimaryURL         *string            `json:"primary_url,omitempty" yaml:"primary_url"`

	// ScoreRBI is a cached score used only to break sort ties.
	ScoreRBI *float64 `json:"score_rbi,omitempty" yaml:"score_rbi"`
}
