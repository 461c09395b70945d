// Package sqlite is the persistent session store driver, backed by
// modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quollsec/sessiond/internal/store"

	_ "modernc.org/sqlite"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the repositories can run against either.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  querier
}

var _ store.Store = (*Store)(nil)

// NewStore opens (or creates) the database at dsn. Use ":memory:" for an
// ephemeral test database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Serialized writes keep MarkRotated's conditional update atomic even
	// with many request goroutines sharing the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, q: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Sessions() store.Sessions       { return &sessionsRepo{q: s.q} }
func (s *Store) SigningKeys() store.SigningKeys { return &signingKeysRepo{q: s.q} }

// WithTx executes fn against a transaction-scoped Store, automatically
// handling commit and rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if _, isTx := s.q.(*sql.Tx); isTx {
		// Nested WithTx reuses the outer transaction.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Safe to call after commit; covers early returns and panics.
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error, onConflict error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return onConflict
	}
	return err
}
