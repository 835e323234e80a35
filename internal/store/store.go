// Package store opens the relational database behind the repositories and
// bootstraps its schema. The database is the single source of truth; every
// cache entry is reconstructible from it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-license-server/licensing"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured database and wraps it in a bun.DB.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serializes writers anyway; a single connection avoids
		// SQLITE_BUSY under concurrent verification calls.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// Migrate creates the legacy tables and their indexes if absent. The unique
// indexes on the natural keys are the cross-process backstop for the
// find-or-create paths: in-process they are serialized per key, but two
// server instances can still race, and then one insert must lose.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*licensing.Client)(nil),
		(*licensing.Product)(nil),
		(*licensing.License)(nil),
		(*licensing.StationLicense)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		name   string
		model  any
		column string
		unique bool
	}{
		{"ux_mt4clients_mt4id", (*licensing.Client)(nil), "MT4ID", true},
		{"ux_mt4products_code", (*licensing.Product)(nil), "Code", true},
		{"ix_mt4licences_idclient", (*licensing.License)(nil), "idClient", false},
		{"ix_mt4licences2_mt4id", (*licensing.StationLicense)(nil), "MT4ID", false},
	}
	for _, ix := range indexes {
		q := db.NewCreateIndex().Model(ix.model).IfNotExists().Index(ix.name).Column(ix.column)
		if ix.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}
	return nil
}
