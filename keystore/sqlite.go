package keystore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joshjon/cryptkit/id"
	"github.com/joshjon/cryptkit/sqlitedb"
	"github.com/joshjon/cryptkit/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "keystore_migrations"

// Migrate creates or upgrades the keystore schema and returns its version.
func Migrate(db *sql.DB) (uint, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("keystore migrations: %w", err)
	}
	return sqlitedb.Migrate(db, fsys, sqlitedb.WithMigrationsTable(migrationsTable))
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Store                       = (*SQLiteStore)(nil)
	_ tx.Repository[*SQLiteStore] = (*SQLiteStore)(nil)
)

// SQLiteStore keeps records in a SQLite database migrated with Migrate.
type SQLiteStore struct {
	db   dbtx
	txer *tx.SQLiteRepositoryTxer[*SQLiteStore]
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db: db,
		txer: tx.NewSQLiteRepositoryTxer(db, tx.SQLiteRepositoryTxerConfig[*SQLiteStore]{
			Timeout: tx.DefaultTimeout,
			WithTxFunc: func(_ *SQLiteStore, txer *tx.SQLiteRepositoryTxer[*SQLiteStore], sqlTx *sql.Tx) *SQLiteStore {
				return &SQLiteStore{db: sqlTx, txer: txer}
			},
		}),
	}
}

func (s *SQLiteStore) WithTx(txn tx.Tx) *SQLiteStore {
	return s.txer.WithTx(s, txn)
}

func (s *SQLiteStore) BeginTxFunc(ctx context.Context, fn func(ctx context.Context, txn tx.Tx, repo *SQLiteStore) error) error {
	return s.txer.BeginTxFunc(ctx, s, fn)
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	return s.BeginTxFunc(ctx, func(ctx context.Context, _ tx.Tx, repo *SQLiteStore) error {
		var exists int
		err := repo.db.QueryRowContext(ctx, `SELECT 1 FROM keys WHERE id = ?`, rec.ID.String()).Scan(&exists)
		switch {
		case err == nil:
			return conflict(rec.ID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("lookup key: %w", err)
		}

		_, err = repo.db.ExecContext(ctx,
			`INSERT INTO keys (id, algorithm, key_size, material, created_at) VALUES (?, ?, ?, ?, ?)`,
			rec.ID.String(), rec.Algorithm, rec.KeySize, rec.Material, rec.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert key: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Get(ctx context.Context, keyID id.KeyID) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, algorithm, key_size, material, created_at FROM keys WHERE id = ?`,
		keyID.String(),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(keyID)
	}
	if err != nil {
		return Record{}, tx.TagSQLiteTimeoutErr(fmt.Errorf("get key: %w", err))
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	after := ""
	if filter.After != nil {
		after = filter.After.String()
	}
	limit := int64(-1)
	if filter.Limit > 0 {
		limit = int64(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, algorithm, key_size, material, created_at FROM keys
		WHERE (? = '' OR algorithm = ?) AND (? = '' OR id > ?)
		ORDER BY id
		LIMIT ?`,
		filter.Algorithm, filter.Algorithm, after, after, limit,
	)
	if err != nil {
		return nil, tx.TagSQLiteTimeoutErr(fmt.Errorf("list keys: %w", err))
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, tx.TagSQLiteTimeoutErr(fmt.Errorf("list keys: %w", err))
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, keyID id.KeyID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM keys WHERE id = ?`, keyID.String())
	if err != nil {
		return tx.TagSQLiteTimeoutErr(fmt.Errorf("delete key: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	if n == 0 {
		return notFound(keyID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rawID     string
		rec       Record
		createdAt int64
	)
	if err := row.Scan(&rawID, &rec.Algorithm, &rec.KeySize, &rec.Material, &createdAt); err != nil {
		return Record{}, err
	}
	keyID, err := id.ParseKeyID(rawID)
	if err != nil {
		return Record{}, fmt.Errorf("parse key id %q: %w", rawID, err)
	}
	rec.ID = keyID
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
