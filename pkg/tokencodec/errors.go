package tokencodec

import "errors"

var (
	// ErrMalformed reports a token whose structural format is invalid.
	ErrMalformed = errors.New("tokencodec: malformed token")

	// ErrBadSignature reports a signature that does not verify against any
	// key in the ring.
	ErrBadSignature = errors.New("tokencodec: invalid signature")

	// ErrUnsupportedTokenType reports an unrecognized token_type tag.
	ErrUnsupportedTokenType = errors.New("tokencodec: unsupported token type")

	// ErrIssuer reports an issuer claim that does not match the codec's.
	ErrIssuer = errors.New("tokencodec: issuer mismatch")

	// ErrNoActiveKey reports an Encode attempt before a signing key was set.
	ErrNoActiveKey = errors.New("tokencodec: no active signing key")
)
