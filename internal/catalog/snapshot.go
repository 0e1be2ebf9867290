package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/givecare/resource-matcher/internal/model"
)

// Snapshot is a full catalog held in memory, in file order.
type Snapshot struct {
	Providers    []model.Provider    `yaml:"providers"`
	Programs     []model.Program     `yaml:"programs"`
	ServiceAreas []model.ServiceArea `yaml:"service_areas"`
	Facilities   []model.Facility    `yaml:"facilities"`
	Resources    []model.Resource    `yaml:"resources"`
}

// LoadSnapshot reads a YAML catalog file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read snapshot %s", path)
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: snapshot %s", path)
	}
	return snap, nil
}

// ParseSnapshot decodes a YAML catalog. Unknown keys are rejected so typos in
// hand-edited files surface early.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "catalog: parse snapshot")
	}
	return &snap, nil
}

// Problem is a referential or uniqueness issue found by Check.
type Problem struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s: %s", p.Kind, p.ID, p.Detail)
}

// Check reports duplicate ids and dangling references. The engine tolerates
// all of them at query time; this is a curation aid.
func (s *Snapshot) Check() []Problem {
	var out []Problem

	providers := make(map[string]bool, len(s.Providers))
	for _, p := range s.Providers {
		if providers[p.ID] {
			out = append(out, Problem{"provider", p.ID, "duplicate id"})
		}
		providers[p.ID] = true
	}

	programs := make(map[string]bool, len(s.Programs))
	for _, p := range s.Programs {
		if programs[p.ID] {
			out = append(out, Problem{"program", p.ID, "duplicate id"})
		}
		programs[p.ID] = true
		if !providers[p.ProviderID] {
			out = append(out, Problem{"program", p.ID, "unknown provider " + p.ProviderID})
		}
	}

	areas := make(map[string]bool, len(s.ServiceAreas))
	for _, a := range s.ServiceAreas {
		if areas[a.ID] {
			out = append(out, Problem{"service_area", a.ID, "duplicate id"})
		}
		areas[a.ID] = true
		if !programs[a.ProgramID] {
			out = append(out, Problem{"service_area", a.ID, "unknown program " + a.ProgramID})
		}
		if a.Type.Narrowness() > model.AreaNational.Narrowness() {
			out = append(out, Problem{"service_area", a.ID, "unknown type " + string(a.Type)})
		}
	}

	facilities := make(map[string]bool, len(s.Facilities))
	for _, f := range s.Facilities {
		if facilities[f.ID] {
			out = append(out, Problem{"facility", f.ID, "duplicate id"})
		}
		facilities[f.ID] = true
	}

	resources := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if resources[r.ID] {
			out = append(out, Problem{"resource", r.ID, "duplicate id"})
		}
		resources[r.ID] = true
		if !programs[r.ProgramID] {
			out = append(out, Problem{"resource", r.ID, "unknown program " + r.ProgramID})
		}
		if r.FacilityID != nil && !facilities[*r.FacilityID] {
			out = append(out, Problem{"resource", r.ID, "unknown facility " + *r.FacilityID})
		}
	}
	return out
}
