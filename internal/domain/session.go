package domain

import "time"

// SessionPair is what issuance and refresh hand back to the caller: a
// short-lived stateless access token and a store-backed refresh token. It is
// never persisted itself.
type SessionPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// SessionRecord is the server-side record of one refresh token, keyed by
// SessionID. Records form a singly linked rotation chain through ReplacedBy,
// rooted at the original login.
//
// A record is live only while Revoked is false and ReplacedBy is empty;
// rotation and revocation are both terminal for a given SessionID.
type SessionRecord struct {
	SessionID   string
	PrincipalID string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Revoked     bool
	ReplacedBy  string // successor session ID, set when rotated away
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Live reports whether the record can still be redeemed, ignoring expiry
// which is the authority's clock-based concern.
func (r SessionRecord) Live() bool {
	return !r.Revoked && r.ReplacedBy == ""
}
