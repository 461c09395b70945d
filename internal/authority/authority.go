// Package authority implements the session token state machine: issuance,
// stateless access verification, refresh rotation with replay detection, and
// revocation.
package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/pkg/clockx"
	"github.com/quollsec/sessiond/pkg/idx"
	"github.com/quollsec/sessiond/pkg/slogx"
	"github.com/quollsec/sessiond/pkg/tokencodec"
)

// Default token TTLs. Short access tokens bound the window a revoked
// credential stays usable; the refresh TTL is the real session lifetime.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpired      = errors.New("token_expired")
	ErrRevoked      = errors.New("token_revoked")
	ErrNotFound     = errors.New("session_not_found")
)

// Authority orchestrates the token codec, clock and session store. It holds
// no mutable state of its own; everything shared lives in the store.
type Authority struct {
	Codec      *tokencodec.Codec
	Store      store.Store
	Clock      clockx.Clock
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueSession starts a new session chain for the principal and returns the
// access/refresh pair. The caller is trusted to have authenticated the
// principal against the external identity store already.
func (a *Authority) IssueSession(ctx context.Context, principalID string) (*domain.SessionPair, error) {
	now := a.Clock.Now()
	sessionID := idx.New().String()

	rec := domain.SessionRecord{
		SessionID:   sessionID,
		PrincipalID: principalID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(a.refreshTTL()),
	}
	if err := a.Store.Sessions().Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("authority: create session: %w", err)
	}

	pair, err := a.mintPair(principalID, sessionID, now)
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("session issued",
		slog.String("principal_id", principalID),
		slog.String("session_id", sessionID),
	)
	return pair, nil
}

// VerifyAccess validates an access token and returns the principal it was
// minted for. Deliberately stateless: no store round-trip, so a revoked
// session's access token stays valid until its short TTL runs out. The
// refresh token is what carries revocation semantics.
func (a *Authority) VerifyAccess(tokenStr string) (string, error) {
	claims, err := a.Codec.Decode(tokenStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokencodec.TokenTypeAccess {
		return "", fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	if !a.Clock.Now().Before(claims.Expiry()) {
		return "", ErrExpired
	}

	return claims.PrincipalID(), nil
}

// Refresh redeems a refresh token for a new session pair, rotating the
// server-side record so the old token can never be used again.
//
// Reuse of an already-rotated token is treated as replay: either an attacker
// holds a stolen token, or a client lost the rotation response. Both are
// indistinguishable here, so the whole chain for that principal is revoked
// and the caller must re-authenticate.
func (a *Authority) Refresh(ctx context.Context, refreshTokenStr string) (*domain.SessionPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := a.Codec.Decode(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokencodec.TokenTypeRefresh || claims.SID == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}

	now := a.Clock.Now()
	if !now.Before(claims.Expiry()) {
		return nil, ErrExpired
	}

	principalID := claims.PrincipalID()
	sessionID := claims.SID

	rec, err := a.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authority: load session: %w", err)
	}

	if rec.Revoked {
		if rec.ReplacedBy != "" {
			// The token was already rotated away and is being presented
			// again: replay. Kill the whole chain.
			a.revokeChain(ctx, principalID, sessionID)
		}
		return nil, ErrRevoked
	}

	newSessionID := idx.New().String()
	newRec := domain.SessionRecord{
		SessionID:   newSessionID,
		PrincipalID: principalID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(a.refreshTTL()),
	}

	err = a.Store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Sessions().MarkRotated(ctx, sessionID, newSessionID); err != nil {
			return err
		}
		return tx.Sessions().Put(ctx, newRec)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyRotated) {
			// Lost a rotation race: someone else redeemed this token
			// between our Get and the compare-and-set. Same escalation as
			// replay; at most one refresh may win.
			a.revokeChain(ctx, principalID, sessionID)
			return nil, ErrRevoked
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authority: rotate session: %w", err)
	}

	pair, err := a.mintPair(principalID, newSessionID, now)
	if err != nil {
		return nil, err
	}

	l.Info("session rotated",
		slog.String("principal_id", principalID),
		slog.String("session_id", sessionID),
		slog.String("replaced_by", newSessionID),
	)
	return pair, nil
}

// Revoke invalidates the refresh token's session (logout). Idempotent:
// unknown, already-revoked or even undecodable tokens all succeed, since
// logout must never fail visibly to the user.
func (a *Authority) Revoke(ctx context.Context, refreshTokenStr string) error {
	claims, err := a.Codec.Decode(refreshTokenStr)
	if err != nil || claims.SID == "" {
		slogx.FromContext(ctx).Debug("revoke called with undecodable token")
		return nil
	}

	if err := a.Store.Sessions().Revoke(ctx, claims.SID); err != nil {
		return fmt.Errorf("authority: revoke session: %w", err)
	}

	slogx.FromContext(ctx).Info("session revoked",
		slog.String("principal_id", claims.PrincipalID()),
		slog.String("session_id", claims.SID),
	)
	return nil
}

// RevokeAll invalidates every live session for the principal ("sign out
// everywhere"). Idempotent.
func (a *Authority) RevokeAll(ctx context.Context, principalID string) error {
	if err := a.Store.Sessions().RevokeAllForPrincipal(ctx, principalID); err != nil {
		return fmt.Errorf("authority: revoke all sessions: %w", err)
	}

	slogx.FromContext(ctx).Info("all sessions revoked",
		slog.String("principal_id", principalID),
	)
	return nil
}

// revokeChain is the replay escalation. Best effort: the caller already
// rejects the credential regardless.
func (a *Authority) revokeChain(ctx context.Context, principalID, sessionID string) {
	l := slogx.FromContext(ctx)
	l.Warn("refresh token replay detected, revoking all sessions for principal",
		slog.String("principal_id", principalID),
		slog.String("session_id", sessionID),
	)

	if err := a.Store.Sessions().RevokeAllForPrincipal(ctx, principalID); err != nil {
		l.Error("failed to revoke session chain after replay",
			slog.String("principal_id", principalID),
			slog.Any("error", err),
		)
	}
}

func (a *Authority) mintPair(principalID, sessionID string, now time.Time) (*domain.SessionPair, error) {
	accessToken, err := a.Codec.Encode(
		tokencodec.NewAccessClaims(principalID, sessionID, a.Issuer, a.accessTTL(), now),
	)
	if err != nil {
		return nil, fmt.Errorf("authority: sign access token: %w", err)
	}

	refreshToken, err := a.Codec.Encode(
		tokencodec.NewRefreshClaims(principalID, sessionID, a.Issuer, a.refreshTTL(), now),
	)
	if err != nil {
		return nil, fmt.Errorf("authority: sign refresh token: %w", err)
	}

	return &domain.SessionPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    a.accessTTL(),
	}, nil
}

func (a *Authority) accessTTL() time.Duration {
	if a.AccessTTL > 0 {
		return a.AccessTTL
	}
	return DefaultAccessTTL
}

func (a *Authority) refreshTTL() time.Duration {
	if a.RefreshTTL > 0 {
		return a.RefreshTTL
	}
	return DefaultRefreshTTL
}
