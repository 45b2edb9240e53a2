// Package migrations provides embedded SQL migration files.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed sql/001_initial.sql
var InitialSQL string

// Apply creates every table the stores use. It is safe to run on an
// already-initialised database.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, InitialSQL); err != nil {
		return fmt.Errorf("apply initial schema: %w", err)
	}
	return nil
}

// Open opens the SQLite database at path with foreign keys enabled and
// applies the schema. ":memory:" databases are pinned to one connection so
// every query sees the same data.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
