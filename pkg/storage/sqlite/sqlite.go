// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/paperjotco/jot/pkg/storage/sqldriver"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Driver implements storage.Driver using SQLite via the shared SQL driver.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver creates a new SQLite-backed store and runs the versioned
// migrations before returning. The dbPath can be a file path or ":memory:"
// for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent across the pool.
	db.SetMaxOpenConns(1)

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Driver{
		Driver: &sqldriver.Driver{
			DB:          db,
			Placeholder: sqldriver.Question,
		},
	}, nil
}
