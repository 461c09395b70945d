package sqlite

import (
	"context"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/store"
)

type sessionsRepo struct {
	q querier
}

func (r *sessionsRepo) Put(ctx context.Context, rec domain.SessionRecord) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (session_id, principal_id, issued_at, expires_at, revoked, replaced_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?)`,
		rec.SessionID, rec.PrincipalID, rec.IssuedAt.UTC(), rec.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err, store.ErrDuplicateSession)
}

func (r *sessionsRepo) Get(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT session_id, principal_id, issued_at, expires_at, revoked, replaced_by, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID,
	)

	var rec domain.SessionRecord
	err := row.Scan(
		&rec.SessionID, &rec.PrincipalID, &rec.IssuedAt, &rec.ExpiresAt,
		&rec.Revoked, &rec.ReplacedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.SessionRecord{}, mapNotFound(err)
	}
	return rec, nil
}

// MarkRotated is the rotation compare-and-set: the WHERE clause only matches
// a live record, so of two concurrent refreshes exactly one update sticks.
func (r *sessionsRepo) MarkRotated(ctx context.Context, sessionID, newSessionID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1, replaced_by = ?, updated_at = ?
		WHERE session_id = ? AND revoked = 0 AND replaced_by = ''`,
		newSessionID, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Lost the race or no such record; look again to tell which.
	if _, err := r.Get(ctx, sessionID); err != nil {
		return err
	}
	return store.ErrAlreadyRotated
}

func (r *sessionsRepo) Revoke(ctx context.Context, sessionID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1, updated_at = ?
		WHERE session_id = ? AND revoked = 0`,
		time.Now().UTC(), sessionID,
	)
	return err
}

func (r *sessionsRepo) RevokeAllForPrincipal(ctx context.Context, principalID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1, updated_at = ?
		WHERE principal_id = ? AND revoked = 0`,
		time.Now().UTC(), principalID,
	)
	return err
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	return err
}
