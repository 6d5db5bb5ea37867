// Package tx runs units of work inside database transactions with automatic
// commit, rollback and timeout tagging.
package tx

import (
	"context"
	"fmt"
	"time"

	"github.com/joshjon/cryptkit/errtag"
)

const DefaultTimeout = 10 * time.Second

// ErrTagTransactionTimeout tags errors caused by a transaction exceeding its
// deadline or waiting too long on a database lock.
type ErrTagTransactionTimeout struct {
	errtag.ErrorTag[errtag.CodeUnavailable]
}

type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository is implemented by repository types that support transactional
// operations. R is the concrete repository type so WithTx and BeginTxFunc
// stay type safe.
//
// A repository returned by WithTx or passed to a BeginTxFunc callback is bound
// to a single transaction and must not be shared across goroutines.
type Repository[R any] interface {
	// WithTx returns a copy of the repository bound to tx. Nested calls reuse
	// the existing transaction and return the repository unchanged.
	WithTx(tx Tx) R

	// BeginTxFunc begins a transaction (unless one is already in progress) and
	// calls fn with a tx-bound repository. The transaction is committed if fn
	// returns nil and rolled back if fn returns an error or panics. Timeouts
	// are tagged with ErrTagTransactionTimeout.
	BeginTxFunc(ctx context.Context, fn func(ctx context.Context, tx Tx, repo R) error) error
}

// Do calls fn and commits tx on success. tx is rolled back when fn returns an
// error or panics; a panic is re-raised after the rollback.
func Do(ctx context.Context, tx Tx, fn func(ctx context.Context) error) error {
	defer func() {
		if r := recover(); r != nil {
			if rErr := tx.Rollback(ctx); rErr != nil {
				panic(fmt.Errorf("panic: %v; failed to rollback transaction: %w", r, rErr))
			}
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			err = fmt.Errorf("%w; failed to rollback transaction: %w", err, rErr)
		}
		return err
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", cErr)
	}

	return nil
}
