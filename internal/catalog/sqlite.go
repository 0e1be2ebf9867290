package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/givecare/resource-matcher/internal/model"
)

// SQLite is a Store backed by modernc.org/sqlite. List columns are stored as
// JSON text and timestamps as RFC 3339 text.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS programs (
	id                TEXT PRIMARY KEY,
	provider_id       TEXT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	pressure_zones    TEXT NOT NULL DEFAULT '[]',
	resource_category TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS service_areas (
	id         TEXT PRIMARY KEY,
	program_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	geo_codes  TEXT NOT NULL DEFAULT '[]'
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
	last_verified_date  TEXT,
	jurisdiction_level  TEXT,
	success_count       INTEGER NOT NULL DEFAULT 0,
	issue_count         INTEGER NOT NULL DEFAULT 0,
	broken_link         INTEGER,
	bounce_count        INTEGER,
	primary_url         TEXT,
	score_rbi           REAL
);

CREATE INDEX IF NOT EXISTS idx_service_areas_program_id ON service_areas(program_id);
CREATE INDEX IF NOT EXISTS idx_resources_program_id ON resources(program_id);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ScanServiceAreas(ctx context.Context, limit int) ([]model.ServiceArea, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program_id, type, geo_codes FROM service_areas ORDER BY id LIMIT ?`,
		sqlLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan service areas")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ServiceArea
	for rows.Next() {
		var a model.ServiceArea
		var areaType, codes string
		if err := rows.Scan(&a.ID, &a.ProgramID, &areaType, &codes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan service area row")
		}
		a.Type = model.AreaType(areaType)
		a.GeoCodes = lenientList("service_area", a.ID, "geo_codes", codes)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate service areas")
}

func (s *SQLite) ResourcesByProgram(ctx context.Context, programID string, limit int) ([]model.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program_id, facility_id, title, verification_status, last_verified_date,
			jurisdiction_level, success_count, issue_count, broken_link, bounce_count, primary_url, score_rbi
		FROM resources WHERE program_id = ? ORDER BY id LIMIT ?`,
		programID, sqlLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: resources for program %s", programID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Resource
	for rows.Next() {
		r, err := scanSQLiteResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate resources")
}

func scanSQLiteResource(rows *sql.Rows) (model.Resource, error) {
	var r model.Resource
	var status string
	var facilityID, verified, level, url sql.NullString
	var broken, bounces sql.NullInt64
	var cached sql.NullFloat64

	if err := rows.Scan(&r.ID, &r.ProgramID, &facilityID, &r.Title, &status, &verified,
		&level, &r.SuccessCount, &r.IssueCount, &broken, &bounces, &url, &cached); err != nil {
		return r, eris.Wrap(err, "sqlite: scan resource row")
	}

	r.VerificationStatus = model.VerificationStatus(status)
	r.FacilityID = nullString(facilityID)
	r.JurisdictionLevel = nullString(level)
	r.PrimaryURL = nullString(url)
	if verified.Valid {
		r.LastVerifiedDate = parseVerifiedDate(r.ID, verified.String)
	}
	if broken.Valid {
		b := broken.Int64 != 0
		r.BrokenLink = &b
	}
	if bounces.Valid {
		n := int(bounces.Int64)
		r.BounceCount = &n
	}
	if cached.Valid {
		f := cached.Float64
		r.ScoreRBI = &f
	}
	return r, nil
}

func (s *SQLite) GetPrograms(ctx context.Context, ids []string) (map[string]model.Program, error) {
	out := make(map[string]model.Program, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT id, provider_id, name, pressure_zones, resource_category FROM programs WHERE id IN `, ids)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get programs")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var p model.Program
		var zones, categories string
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.Name, &zones, &categories); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan program row")
		}
		p.PressureZones = lenientList("program", p.ID, "pressure_zones", zones)
		p.ResourceCategory = lenientList("program", p.ID, "resource_category", categories)
		out[p.ID] = p
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate programs")
}

func (s *SQLite) GetProviders(ctx context.Context, ids []string) (map[string]model.Provider, error) {
	out := make(map[string]model.Provider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT id, name FROM providers WHERE id IN `, ids)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get providers")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider row")
		}
		out[p.ID] = p
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate providers")
}

func (s *SQLite) GetFacilities(ctx context.Context, ids []string) (map[string]model.Facility, error) {
	out := make(map[string]model.Facility, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT id, name, address, phone FROM facilities WHERE id IN `, ids)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get facilities")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Address, &f.Phone); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan facility row")
		}
		out[f.ID] = f
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate facilities")
}

// Load replaces the whole catalog with snap in one transaction.
func (s *SQLite) Load(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: load: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"resources", "facilities", "service_areas", "programs", "providers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: load: clear %s", table)
		}
	}

	for _, t := range snapshotTables(snap) {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO "+t.Name+" ("+strings.Join(t.Columns, ", ")+") VALUES ("+placeholders+")")
		if err != nil {
			return eris.Wrapf(err, "sqlite: load: prepare %s", t.Name)
		}
		for _, row := range t.Rows {
			if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
				stmt.Close() //nolint:errcheck
				return eris.Wrapf(err, "sqlite: load: insert %s %v", t.Name, row[0])
			}
		}
		stmt.Close() //nolint:errcheck
	}

	return eris.Wrap(tx.Commit(), "sqlite: load: commit")
}

// sqliteArgs converts snapshot row values into SQLite column encodings.
func sqliteArgs(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case []string:
			out[i] = encodeList(x)
		case *time.Time:
			if x != nil {
				out[i] = x.UTC().Format(time.RFC3339)
			}
		case *bool:
			if x != nil {
				out[i] = *x
			}
		case *string:
			if x != nil {
				out[i] = *x
			}
		case *int:
			if x != nil {
				out[i] = *x
			}
		case *float64:
			if x != nil {
				out[i] = *x
			}
		default:
			out[i] = v
		}
	}
	return out
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func inClause(prefix string, ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return prefix + "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encodeList(in []string) string {
	if len(in) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(in)
	return string(b)
}

// parseVerifiedDate accepts RFC3339 timestamps and bare dates. Anything else
// leaves the date unset so one bad row cannot fail a whole program lookup.
func parseVerifiedDate(resourceID, raw string) *time.Time {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	zap.L().Debug("sqlite: ignoring unparseable last_verified_date",
		zap.String("resource_id", resourceID),
		zap.String("value", raw),
	)
	return nil
}

// lenientList decodes a JSON list column, treating malformed values as empty.
func lenientList(table, id, column, raw string) []string {
	out, err := decodeList(raw)
	if err != nil {
		zap.L().Debug("sqlite: ignoring malformed list column",
			zap.String("table", table),
			zap.String("id", id),
			zap.String("column", column),
			zap.Error(err),
		)
		return nil
	}
	return out
}

func decodeList(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
