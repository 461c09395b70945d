package tokencodec

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type tags embedded in every token so an access token can never be
// replayed against the refresh endpoint or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the signed contents of both access and refresh tokens. The
// principal identifier travels in the registered "sub" claim and is treated
// as opaque end to end.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the refresh session identifier. Set on refresh tokens only;
	// access tokens carry it for correlation in logs.
	SID string `json:"sid,omitempty"`

	// TokenType distinguishes access from refresh tokens.
	TokenType string `json:"token_type"`
}

// NewAccessClaims builds claims for a short-lived access token.
func NewAccessClaims(principalID, sessionID, issuer string, ttl time.Duration, now time.Time) Claims {
	return newClaims(TokenTypeAccess, principalID, sessionID, issuer, ttl, now)
}

// NewRefreshClaims builds claims for a store-backed refresh token.
func NewRefreshClaims(principalID, sessionID, issuer string, ttl time.Duration, now time.Time) Claims {
	return newClaims(TokenTypeRefresh, principalID, sessionID, issuer, ttl, now)
}

func newClaims(tokenType, principalID, sessionID, issuer string, ttl time.Duration, now time.Time) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SID:       sessionID,
		TokenType: tokenType,
	}
}

// PrincipalID returns the opaque principal identifier the token was minted
// for.
func (c Claims) PrincipalID() string { return c.Subject }

// Expiry returns the expiry instant. Zero time when the claim is missing,
// which callers must treat as already expired.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issuance instant, or zero time when missing.
func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
