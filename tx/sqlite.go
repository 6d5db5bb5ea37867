package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	lib "modernc.org/sqlite/lib"

	"github.com/joshjon/cryptkit/errtag"
)

// MaxTimeout caps SQLiteRepositoryTxerConfig.Timeout.
const MaxTimeout = 10 * time.Second

// SQLiteTxer hands out SQLite connections, typically an *sql.DB.
type SQLiteTxer interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

type SQLiteRepositoryTxerConfig[R any] struct {
	// Timeout bounds a whole transaction including lock waits. Zero or values
	// above MaxTimeout use DefaultTimeout.
	Timeout time.Duration

	// WithTxFunc returns a copy of repo that runs its statements on tx and
	// keeps txer for nested calls.
	WithTxFunc func(repo R, txer *SQLiteRepositoryTxer[R], tx *sql.Tx) R
}

// SQLiteRepositoryTxer gives a repository R backed by modernc.org/sqlite
// transactional methods. A root repository may be shared between goroutines,
// a tx-bound copy may not. Nested calls join the ambient transaction.
type SQLiteRepositoryTxer[R any] struct {
	Config SQLiteRepositoryTxerConfig[R]

	db      SQLiteTxer
	ambient *sqliteTx
}

func NewSQLiteRepositoryTxer[R any](db SQLiteTxer, cfg SQLiteRepositoryTxerConfig[R]) *SQLiteRepositoryTxer[R] {
	if cfg.Timeout <= 0 || cfg.Timeout > MaxTimeout {
		cfg.Timeout = DefaultTimeout
	}
	return &SQLiteRepositoryTxer[R]{Config: cfg, db: db}
}

// WithTx binds a copy of repo to txn, which must have been started by this
// package. Inside an ambient transaction repo is returned as is.
func (r *SQLiteRepositoryTxer[R]) WithTx(repo R, txn Tx) R {
	if r.ambient != nil {
		return repo
	}
	stx, ok := txn.(*sqliteTx)
	if !ok {
		panic(fmt.Sprintf("tx: SQLiteRepositoryTxer cannot bind %T", txn))
	}
	bound := *r
	bound.ambient = stx
	return r.Config.WithTxFunc(repo, &bound, stx.tx)
}

// BeginTxFunc runs fn in a transaction bound to a copy of repo, committing
// when fn succeeds. While the transaction runs, the connection's busy_timeout
// matches the transaction timeout so waiting on a lock cannot outlive the
// deadline. The connection's own busy_timeout is put back afterwards.
func (r *SQLiteRepositoryTxer[R]) BeginTxFunc(
	ctx context.Context,
	repo R,
	fn func(ctx context.Context, tx Tx, repo R) error,
) error {
	if r.ambient != nil {
		return fn(ctx, r.ambient, repo)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Config.Timeout)
	defer cancel()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return TagSQLiteTimeoutErr(fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	restore, err := setBusyTimeout(ctx, conn, r.Config.Timeout)
	if err != nil {
		return TagSQLiteTimeoutErr(err)
	}
	defer restore()

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return TagSQLiteTimeoutErr(fmt.Errorf("begin transaction: %w", err))
	}

	stx := &sqliteTx{tx: sqlTx}
	bound := r.WithTx(repo, stx)
	err = Do(ctx, stx, func(ctx context.Context) error {
		return fn(ctx, stx, bound)
	})
	return TagSQLiteTimeoutErr(err)
}

// TagSQLiteTimeoutErr tags deadline, SQLITE_BUSY and SQLITE_LOCKED errors
// with ErrTagTransactionTimeout and returns any other error unchanged.
func TagSQLiteTimeoutErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errtag.Tag[ErrTagTransactionTimeout](err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case lib.SQLITE_BUSY, lib.SQLITE_LOCKED:
			return errtag.Tag[ErrTagTransactionTimeout](err)
		}
	}
	return err
}

// setBusyTimeout sets busy_timeout on conn and returns a func restoring the
// previous value.
func setBusyTimeout(ctx context.Context, conn *sql.Conn, timeout time.Duration) (func(), error) {
	var prev int64
	if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&prev); err != nil {
		return nil, fmt.Errorf("read busy timeout: %w", err)
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", timeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return func() {
		// the transaction deadline may already have passed
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), fmt.Sprintf("PRAGMA busy_timeout=%d", prev))
	}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

// Commit gives up and rolls back when ctx ends before the commit returns.
func (s *sqliteTx) Commit(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.tx.Commit() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.tx.Rollback()
		return ctx.Err()
	}
}

func (s *sqliteTx) Rollback(context.Context) error {
	return s.tx.Rollback()
}
