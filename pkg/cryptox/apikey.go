package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for API key hashing. The issue/revoke-all endpoints
// verify once per request, so the cost is tuned lower than a login path
// would need.
const (
	apiKeyIterations  uint32 = 2
	apiKeyMemory      uint32 = 32 * 1024
	apiKeyParallelism uint8  = 2
	apiKeySaltLength         = 16
	apiKeyHashLength  uint32 = 32
)

// ErrAPIKeyMismatch is returned when a presented API key does not match the
// stored hash.
var ErrAPIKeyMismatch = errors.New("cryptox: api key does not match")

// HashAPIKey generates a PHC-format Argon2id hash string including salt and
// parameters, suitable for storing in configuration.
func HashAPIKey(key string) (string, error) {
	salt := make([]byte, apiKeySaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, apiKeyIterations, apiKeyMemory, apiKeyParallelism, apiKeyHashLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		apiKeyMemory, apiKeyIterations, apiKeyParallelism, b64Salt, b64Hash,
	), nil
}

// VerifyAPIKey compares a plaintext API key against a PHC-style Argon2id
// hash. Returns ErrAPIKeyMismatch when the key is wrong, or a descriptive
// error if the hash itself is unparseable.
func VerifyAPIKey(key, encodedHash string) error {
	// PHC format: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := splitDollar(encodedHash)
	if len(parts) != 6 {
		return errors.New("cryptox: invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("cryptox: invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("cryptox: invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(key), salt, iters, mem, par, uint32(len(expected))) // #nosec G115

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrAPIKeyMismatch
}

func splitDollar(s string) []string {
	parts := make([]string, 0, 6)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
