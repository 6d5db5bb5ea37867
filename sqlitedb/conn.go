// Package sqlitedb opens modernc.org/sqlite databases and applies embedded
// migrations.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite" // register the sqlite driver
)

const (
	defaultDBName       = "cryptkit"
	busyTimeout         = 5 * time.Second
	healthRetryInterval = time.Second
	healthMaxRetries    = 5
)

type OpenOption func(opts *openOpts)

// WithDir sets the directory used to store the SQLite database file. It is
// created if missing.
func WithDir(dir string) OpenOption {
	return func(opts *openOpts) {
		opts.dir = dir
	}
}

// WithDBName sets the SQLite database name used when creating the `<dbName>.db`
// file. This option has no effect when WithInMemory is used.
func WithDBName(dbName string) OpenOption {
	return func(opts *openOpts) {
		opts.dbName = dbName
	}
}

// WithInMemory configures the connection to use an in-memory SQLite database.
func WithInMemory() OpenOption {
	return func(opts *openOpts) {
		opts.inMemory = true
	}
}

type openOpts struct {
	dir      string
	dbName   string
	inMemory bool
}

// Open opens the database and waits until it answers pings.
func Open(ctx context.Context, opts ...OpenOption) (*sql.DB, error) {
	o := openOpts{dbName: defaultDBName}
	for _, opt := range opts {
		opt(&o)
	}

	dsn, err := o.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite supports a single writer, and an in-memory database lives and dies
	// with its connection
	db.SetMaxOpenConns(1)

	if err = waitHealthy(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file Open would use with the same options, or
// ":memory:".
func Path(opts ...OpenOption) string {
	o := openOpts{dbName: defaultDBName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.inMemory {
		return ":memory:"
	}
	return filepath.Join(o.dir, o.dbName+".db")
}

func (o openOpts) dsn() (string, error) {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", busyTimeout.Milliseconds())
	if o.inMemory {
		return ":memory:?" + pragmas, nil
	}
	if o.dir != "" {
		if err := os.MkdirAll(o.dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	file := filepath.Join(o.dir, o.dbName+".db")
	return "file:" + file + "?" + pragmas + "&_pragma=journal_mode(WAL)", nil
}

func waitHealthy(ctx context.Context, db *sql.DB) error {
	pingFn := func() error {
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return db.PingContext(pctx)
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(healthRetryInterval), healthMaxRetries),
		ctx,
	)
	if err := backoff.Retry(pingFn, bo); err != nil {
		return fmt.Errorf("sqlite connection unhealthy: %w", err)
	}
	return nil
}
