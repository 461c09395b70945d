package tokencodec

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
)

// Keyring holds the active Ed25519 signing key plus any previous keys that
// are still accepted for verification. Rotating in a new key keeps the old
// one verify-only, so tokens signed before the rotation stay valid for
// their natural lifetime while all new tokens use the current key.
//
// Thread-safe; the HTTP layer verifies concurrently while an operator
// rotates keys.
type Keyring struct {
	mu        sync.RWMutex
	activeKID string
	active    ed25519.PrivateKey
	verify    map[string]ed25519.PublicKey // kid -> public key, includes active
}

// NewKeyring returns an empty Keyring. A signing key must be added with
// Rotate before Encode can be used.
func NewKeyring() *Keyring {
	return &Keyring{verify: make(map[string]ed25519.PublicKey)}
}

// Rotate installs a new active signing key. The previous active key (if
// any) remains in the ring verify-only.
func (k *Keyring) Rotate(kid string, pemKey []byte) error {
	priv, err := parseEd25519PEM(pemKey)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.activeKID = kid
	k.active = priv
	k.verify[kid] = priv.Public().(ed25519.PublicKey)
	return nil
}

// AddVerifyOnly registers a previous key for verification without making it
// the signing key. Used when restoring persisted keys at startup.
func (k *Keyring) AddVerifyOnly(kid string, pemKey []byte) error {
	priv, err := parseEd25519PEM(pemKey)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.verify[kid] = priv.Public().(ed25519.PublicKey)
	return nil
}

// Retire removes a key from the ring entirely. Tokens signed with it stop
// verifying immediately.
func (k *Keyring) Retire(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.verify, kid)
	if k.activeKID == kid {
		k.activeKID = ""
		k.active = nil
	}
}

// ActiveKID returns the key ID new tokens are signed with, or "" when no
// signing key is installed.
func (k *Keyring) ActiveKID() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.activeKID
}

// KIDs returns all key IDs currently accepted for verification.
func (k *Keyring) KIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]string, 0, len(k.verify))
	for kid := range k.verify {
		out = append(out, kid)
	}
	return out
}

func (k *Keyring) signingKey() (string, ed25519.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.active == nil {
		return "", nil, ErrNoActiveKey
	}
	return k.activeKID, k.active, nil
}

func (k *Keyring) verifyKey(kid string) (ed25519.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	pub, ok := k.verify[kid]
	return pub, ok
}

func parseEd25519PEM(pemKey []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("tokencodec: invalid PEM for Ed25519 key")
	}

	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("tokencodec: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("tokencodec: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("tokencodec: not Ed25519 private key")
	}
	return key, nil
}
