package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table is the full contents of one table for ReplaceTables.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// CopyFrom bulk-inserts rows into a table using the PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, conn interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// ReplaceTables truncates every table and COPYs the new rows in a single
// transaction, so readers see either the old snapshot or the new one.
func ReplaceTables(ctx context.Context, pool Pool, tables []Table) (int64, error) {
	if len(tables) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = pgx.Identifier{t.Name}.Sanitize()
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(names, ", ")); err != nil {
		return 0, eris.Wrap(err, "db: replace: truncate")
	}

	var total int64
	for _, t := range tables {
		n, err := CopyFrom(ctx, tx, t.Name, t.Columns, t.Rows)
		if err != nil {
			return 0, eris.Wrap(err, "db: replace")
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit")
	}
	return total, nil
}
