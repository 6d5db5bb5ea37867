package sqlitedb

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

type migrationOptions struct {
	version *uint
	table   string
}

type MigrateOption func(opts *migrationOptions)

// WithVersion migrates up or down to version instead of the latest.
func WithVersion(version uint) MigrateOption {
	return func(opts *migrationOptions) {
		opts.version = &version
	}
}

// WithMigrationsTable sets the table that records the applied version, so
// several schemas can share one database.
func WithMigrationsTable(table string) MigrateOption {
	return func(opts *migrationOptions) {
		opts.table = table
	}
}

// Migrate applies the *.up.sql / *.down.sql files at the root of fsys and
// returns the schema version the database ends up at. A dirty database, left
// behind by a migration that failed halfway, is reported as an error.
func Migrate(db *sql.DB, fsys fs.FS, opts ...MigrateOption) (uint, error) {
	var mopts migrationOptions
	for _, opt := range opts {
		opt(&mopts)
	}

	sd, err := iofs.New(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("open migrations fs: %w", err)
	}
	defer sd.Close() //nolint:errcheck

	driver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: mopts.table})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sd, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}

	if mopts.version != nil {
		err = m.Migrate(*mopts.version)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
