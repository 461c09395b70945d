// Package tokencodec serializes session token claims into signed compact JWT
// strings and parses them back, verifying structure and signature.
//
// The codec deliberately does NOT check expiry. Expiry policy belongs to the
// session authority, which compares against its injected clock; keeping that
// comparison out of the codec keeps expiry behaviour centralized and
// testable with a fake clock.
package tokencodec

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec encodes and decodes signed session tokens. Pure: its only state is
// the keyring and issuer it was constructed with.
type Codec struct {
	keys   *Keyring
	issuer string
}

// New returns a Codec signing and verifying with keys, stamping and
// requiring the given issuer.
func New(keys *Keyring, issuer string) *Codec {
	return &Codec{keys: keys, issuer: issuer}
}

// Encode signs claims with the active key and returns the compact token
// string. Fails only when no signing key is installed or the key is unusable.
func (c *Codec) Encode(claims Claims) (string, error) {
	kid, priv, err := c.keys.signingKey()
	if err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = kid

	signed, err := t.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("tokencodec: sign: %w", err)
	}
	return signed, nil
}

// Decode parses and cryptographically verifies a token string.
//
// Returns ErrMalformed for structurally invalid input, ErrBadSignature when
// the signature does not verify against any key in the ring, ErrIssuer on
// issuer mismatch and ErrUnsupportedTokenType for an unrecognized type tag.
// Expiry is NOT checked here.
func (c *Codec) Decode(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		// Expiry and nbf are the authority's concern, checked against its
		// injected clock.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrBadSignature
		}

		pub, ok := c.keys.verifyKey(kid)
		if !ok {
			return nil, fmt.Errorf("unknown kid %q: %w", kid, ErrBadSignature)
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}

	switch claims.TokenType {
	case TokenTypeAccess, TokenTypeRefresh:
	default:
		return Claims{}, fmt.Errorf("%w: %q", ErrUnsupportedTokenType, claims.TokenType)
	}

	return *claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrBadSignature):
		return err
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
