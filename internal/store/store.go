// Package store defines the persistence contract for refresh session records
// and signing keys. Concrete drivers (sqlite, memory) implement it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
)

var (
	// ErrNotFound reports a lookup for a session or key that does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateSession reports an insert with an already-used session ID.
	ErrDuplicateSession = errors.New("store: duplicate session")

	// ErrAlreadyRotated reports a MarkRotated on a record that is no longer
	// live. This is the loser's signal in a concurrent refresh race.
	ErrAlreadyRotated = errors.New("store: session already rotated or revoked")
)

// Store is the root data access interface. It exposes sub-repositories to
// keep concerns tidy and testable.
type Store interface {
	Sessions() Sessions
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// WithTx executes fn against a transaction-scoped Store. If fn returns
	// an error the transaction is rolled back, otherwise committed. Used for
	// multi-step operations that should land together (refresh rotation).
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is still reachable.
	Ping(ctx context.Context) error
}

// Sessions is the refresh-session repository. All operations must be safe
// for concurrent callers; MarkRotated in particular must be an atomic
// compare-and-set so at most one concurrent refresh of the same session
// wins.
type Sessions interface {
	// Put inserts a new live record. Fails with ErrDuplicateSession if the
	// session ID already exists.
	Put(ctx context.Context, rec domain.SessionRecord) error

	// Get returns the record for sessionID, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (domain.SessionRecord, error)

	// MarkRotated atomically moves a live record to revoked with the given
	// successor (revoked=false -> revoked=true, replaced_by=newSessionID).
	// Fails with ErrNotFound if no record exists, or ErrAlreadyRotated if
	// the record is already revoked or rotated.
	MarkRotated(ctx context.Context, sessionID, newSessionID string) error

	// Revoke marks a record revoked without a successor (logout). Revoking
	// a missing or already-revoked session is not an error.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAllForPrincipal revokes every live record for the principal
	// ("sign out everywhere", replay escalation).
	RevokeAllForPrincipal(ctx context.Context, principalID string) error

	// DeleteExpired removes records whose expiry is at or before now.
	// Housekeeping only; expired records are already invalid.
	DeleteExpired(ctx context.Context, now time.Time) error
}

// SigningKeys persists encrypted token signing keys so a restart can restore
// the verification grace window for previously issued tokens.
type SigningKeys interface {
	// Put stores a new signing key. Fails with ErrDuplicateSession-style
	// uniqueness on KID via the driver's primary key.
	Put(ctx context.Context, key domain.SigningKey) error

	// List returns all keys, newest first.
	List(ctx context.Context) ([]domain.SigningKey, error)

	// Retire marks a key as no longer used for signing.
	Retire(ctx context.Context, kid string, at time.Time) error

	// DeleteRetiredBefore removes keys retired at or before the cutoff.
	DeleteRetiredBefore(ctx context.Context, cutoff time.Time) error
}
