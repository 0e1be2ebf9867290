package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/givecare/resource-matcher/internal/db"
	"github.com/givecare/resource-matcher/internal/model"
)

// Postgres is a Store backed by a pgx pool.
type Postgres struct {
	pool db.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres opens a pool against connString.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*Postgres, error) {
	pool, err := db.Open(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, typically a pgxmock pool.
func NewPostgresWithPool(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS programs (
	id                TEXT PRIMARY KEY,
	provider_id       TEXT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	pressure_zones    TEXT[] NOT NULL DEFAULT '{}',
	resource_category TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS service_areas (
	id         TEXT PRIMARY KEY,
	program_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	geo_codes  TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS facilities (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phone   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS resources (
	id                  TEXT PRIMARY KEY,
	program_id          TEXT NOT NULL,
	facility_id         TEXT,
	title               TEXT NOT NULL DEFAULT '',
	verification_status TEXT NOT NULL DEFAULT 'unverified',
	last_verified_date  TIMESTAMPTZ,
	jurisdiction_level  TEXT,
	success_count       INTEGER NOT NULL DEFAULT 0,
	issue_count         INTEGER NOT NULL DEFAULT 0,
	broken_link         BOOLEAN,
	bounce_count        INTEGER,
	primary_url         TEXT,
	score_rbi           DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_service_areas_program_id ON service_areas(program_id);
CREATE INDEX IF NOT EXISTS idx_resources_program_id ON resources(program_id);
CREATE INDEX IF NOT EXISTS idx_service_areas_geo_codes ON service_areas USING GIN (geo_codes);
`

func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *Postgres) ScanServiceAreas(ctx context.Context, limit int) ([]model.ServiceArea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, program_id, type, geo_codes FROM service_areas ORDER BY id LIMIT $1`,
		pgLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan service areas")
	}
	defer rows.Close()

	var out []model.ServiceArea
	for rows.Next() {
		var a model.ServiceArea
		var areaType string
		if err := rows.Scan(&a.ID, &a.ProgramID, &areaType, &a.GeoCodes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan service area row")
		}
		a.Type = model.AreaType(areaType)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate service areas")
}

func (s *Postgres) ResourcesByProgram(ctx context.Context, programID string, limit int) ([]model.Resource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, program_id, facility_id, title, verification_status, last_verified_date,
			jurisdiction_level, success_count, issue_count, broken_link, bounce_count, primary_url, score_rbi
		FROM resources WHERE program_id = $1 ORDER BY id LIMIT $2`,
		programID, pgLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: resources for program %s", programID)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var r model.Resource
		var status string
		if err := rows.Scan(&r.ID, &r.ProgramID, &r.FacilityID, &r.Title, &status, &r.LastVerifiedDate,
			&r.JurisdictionLevel, &r.SuccessCount, &r.IssueCount, &r.BrokenLink, &r.BounceCount,
			&r.PrimaryURL, &r.ScoreRBI); err != nil {
			return nil, eris.Wrap(err, "postgres: scan resource row")
		}
		r.VerificationStatus = model.VerificationStatus(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate resources")
}

func (s *Postgres) GetPrograms(ctx context.Context, ids []string) (map[string]model.Program, error) {
	out := make(map[string]model.Program, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, name, pressure_zones, resource_category FROM programs WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get programs")
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Program
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.Name, &p.PressureZones, &p.ResourceCategory); err != nil {
			return nil, eris.Wrap(err, "postgres: scan program row")
		}
		out[p.ID] = p
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate programs")
}

func (s *Postgres) GetProviders(ctx context.Context, ids []string) (map[string]model.Provider, error) {
	out := make(map[string]model.Provider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM providers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get providers")
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider row")
		}
		out[p.ID] = p
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate providers")
}

func (s *Postgres) GetFacilities(ctx context.Context, ids []string) (map[string]model.Facility, error) {
	out := make(map[string]model.Facility, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, address, phone FROM facilities WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get facilities")
	}
	defer rows.Close()

	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Address, &f.Phone); err != nil {
			return nil, eris.Wrap(err, "postgres: scan facility row")
		}
		out[f.ID] = f
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate facilities")
}

// Load replaces the whole catalog with snap via COPY in one transaction.
func (s *Postgres) Load(ctx context.Context, snap *Snapshot) error {
	_, err := db.ReplaceTables(ctx, s.pool, snapshotTables(snap))
	return eris.Wrap(err, "postgres: load")
}

// pgLimit maps a non-positive limit to LIMIT NULL (no limit).
func pgLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
