// Package memory provides the in-memory reference implementation of the
// session store. Used in tests and as the default backend when no database
// file is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/store"
)

// Store keeps everything behind a single mutex. The record set is small
// enough that a global lock is cheaper than per-session locking, and it
// trivially gives MarkRotated its compare-and-set atomicity.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]domain.SessionRecord
	byPrincipal map[string][]string // principalID -> session IDs
	keys        map[string]domain.SigningKey
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]domain.SessionRecord),
		byPrincipal: make(map[string][]string),
		keys:        make(map[string]domain.SigningKey),
	}
}

func (s *Store) Sessions() store.Sessions       { return (*sessionsRepo)(s) }
func (s *Store) SigningKeys() store.SigningKeys { return (*signingKeysRepo)(s) }

func (s *Store) ApplyMigrations() error { return nil }

// WithTx runs fn against the store itself. Every individual operation is
// already atomic under the global mutex; the rotation invariant rests on
// MarkRotated's compare-and-set, not on multi-op transactionality.
func (s *Store) WithTx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *Store) Close() error                 { return nil }
func (s *Store) Ping(_ context.Context) error { return nil }

type sessionsRepo Store

func (r *sessionsRepo) Put(_ context.Context, rec domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[rec.SessionID]; exists {
		return store.ErrDuplicateSession
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.sessions[rec.SessionID] = rec
	r.byPrincipal[rec.PrincipalID] = append(r.byPrincipal[rec.PrincipalID], rec.SessionID)
	return nil
}

func (r *sessionsRepo) Get(_ context.Context, sessionID string) (domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return domain.SessionRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *sessionsRepo) MarkRotated(_ context.Context, sessionID, newSessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	if !rec.Live() {
		return store.ErrAlreadyRotated
	}

	rec.Revoked = true
	rec.ReplacedBy = newSessionID
	rec.UpdatedAt = time.Now().UTC()
	r.sessions[sessionID] = rec
	return nil
}

func (r *sessionsRepo) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil // idempotent: unknown sessions revoke silently
	}

	if !rec.Revoked {
		rec.Revoked = true
		rec.UpdatedAt = time.Now().UTC()
		r.sessions[sessionID] = rec
	}
	return nil
}

func (r *sessionsRepo) RevokeAllForPrincipal(_ context.Context, principalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range r.byPrincipal[principalID] {
		rec, ok := r.sessions[id]
		if !ok || rec.Revoked {
			continue
		}
		rec.Revoked = true
		rec.UpdatedAt = now
		r.sessions[id] = rec
	}
	return nil
}

func (r *sessionsRepo) DeleteExpired(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range r.sessions {
		if rec.ExpiresAt.After(now) {
			continue
		}
		delete(r.sessions, id)

		ids := r.byPrincipal[rec.PrincipalID]
		for i, sid := range ids {
			if sid == id {
				r.byPrincipal[rec.PrincipalID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(r.byPrincipal[rec.PrincipalID]) == 0 {
			delete(r.byPrincipal, rec.PrincipalID)
		}
	}
	return nil
}

type signingKeysRepo Store

func (r *signingKeysRepo) Put(_ context.Context, key domain.SigningKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[key.KID]; exists {
		return store.ErrDuplicateSession
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	r.keys[key.KID] = key
	return nil
}

func (r *signingKeysRepo) List(_ context.Context) ([]domain.SigningKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SigningKey, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *signingKeysRepo) Retire(_ context.Context, kid string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[kid]
	if !ok {
		return store.ErrNotFound
	}
	if key.RetiredAt == nil {
		at = at.UTC()
		key.RetiredAt = &at
		r.keys[kid] = key
	}
	return nil
}

func (r *signingKeysRepo) DeleteRetiredBefore(_ context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kid, key := range r.keys {
		if key.RetiredAt != nil && !key.RetiredAt.After(cutoff) {
			delete(r.keys, kid)
		}
	}
	return nil
}
