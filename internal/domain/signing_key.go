package domain

import "time"

// SigningKey is a persisted token signing key. The private key PEM is stored
// encrypted under the master key (AES-256-GCM); only the daemon that owns
// the master key material can recover it.
type SigningKey struct {
	KID          string
	EncryptedPEM []byte
	CreatedAt    time.Time
	RetiredAt    *time.Time // nil while the key may still sign
}

// Retired reports whether the key has been rotated out of signing duty.
// Retired keys remain verify-only until housekeeping deletes them.
func (k SigningKey) Retired() bool { return k.RetiredAt != nil }
