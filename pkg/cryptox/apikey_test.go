package cryptox_test

import (
	"strings"
	"testing"

	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyAPIKey(t *testing.T) {
	t.Parallel()

	key := cryptox.MustGenerateToken(cryptox.TokenSize256)

	hash, err := cryptox.HashAPIKey(key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, cryptox.VerifyAPIKey(key, hash))
	require.ErrorIs(t, cryptox.VerifyAPIKey("wrong-key", hash), cryptox.ErrAPIKeyMismatch)
}

func TestVerifyAPIKeyRejectsBadFormats(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{
		"",
		"plain-text",
		"$bcrypt$v=19$m=32768,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=32768,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
	} {
		err := cryptox.VerifyAPIKey("key", bad)
		require.Error(t, err, "hash %q", bad)
		require.NotErrorIs(t, err, cryptox.ErrAPIKeyMismatch, "hash %q", bad)
	}
}

func TestHashAPIKeyIsSalted(t *testing.T) {
	t.Parallel()

	h1, err := cryptox.HashAPIKey("same-key")
	require.NoError(t, err)
	h2, err := cryptox.HashAPIKey("same-key")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.NoError(t, cryptox.VerifyAPIKey("same-key", h1))
	require.NoError(t, cryptox.VerifyAPIKey("same-key", h2))
}
