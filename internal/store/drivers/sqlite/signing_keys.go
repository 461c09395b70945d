package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/store"
)

type signingKeysRepo struct {
	q querier
}

func (r *signingKeysRepo) Put(ctx context.Context, key domain.SigningKey) error {
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO signing_keys (kid, encrypted_pem, created_at, retired_at)
		VALUES (?, ?, ?, ?)`,
		key.KID, key.EncryptedPEM, createdAt.UTC(), nullableTime(key.RetiredAt),
	)
	return mapConstraint(err, store.ErrDuplicateSession)
}

func (r *signingKeysRepo) List(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT kid, encrypted_pem, created_at, retired_at
		FROM signing_keys ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SigningKey
	for rows.Next() {
		var key domain.SigningKey
		var retired sql.NullTime
		if err := rows.Scan(&key.KID, &key.EncryptedPEM, &key.CreatedAt, &retired); err != nil {
			return nil, err
		}
		if retired.Valid {
			at := retired.Time
			key.RetiredAt = &at
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (r *signingKeysRepo) Retire(ctx context.Context, kid string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE signing_keys SET retired_at = ? WHERE kid = ? AND retired_at IS NULL`,
		at.UTC(), kid,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish missing from already retired; only missing is an error.
		var one int
		if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM signing_keys WHERE kid = ?`, kid).Scan(&one); err != nil {
			return mapNotFound(err)
		}
	}
	return nil
}

func (r *signingKeysRepo) DeleteRetiredBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM signing_keys WHERE retired_at IS NOT NULL AND retired_at <= ?`, cutoff.UTC(),
	)
	return err
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
