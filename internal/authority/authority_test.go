package authority_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/internal/store/drivers/memory"
	"github.com/quollsec/sessiond/internal/store/drivers/sqlite"
	"github.com/quollsec/sessiond/pkg/clockx"
	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/quollsec/sessiond/pkg/tokencodec"
	"github.com/stretchr/testify/require"
)

const testIssuer = "sessiond-test"

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newAuthority(t *testing.T, st store.Store) (*authority.Authority, *clockx.Fake) {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	keys := tokencodec.NewKeyring()
	require.NoError(t, keys.Rotate("test-key", pemKey))

	clock := clockx.NewFake(t0)
	auth := &authority.Authority{
		Codec:      tokencodec.New(keys, testIssuer),
		Store:      st,
		Clock:      clock,
		Issuer:     testIssuer,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	return auth, clock
}

func TestIssuanceProducesVerifiableTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, _ := newAuthority(t, memory.NewStore())

	for _, principal := range []string{"user-42", "svc:billing", "c3f1ab"} {
		pair, err := auth.IssueSession(ctx, principal)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)

		got, err := auth.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, principal, got)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, _ := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	_, err = auth.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, authority.ErrInvalidToken)
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	t.Parallel()

	auth, _ := newAuthority(t, memory.NewStore())

	for _, bad := range []string{"", "junk", "a.b.c"} {
		_, err := auth.VerifyAccess(bad)
		require.ErrorIs(t, err, authority.ErrInvalidToken, "input %q", bad)
	}
}

func TestExpiryMonotonicity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	// Valid strictly before expiresAt.
	for _, offset := range []time.Duration{0, time.Minute, 15*time.Minute - time.Second} {
		clock.Set(t0.Add(offset))
		_, err := auth.VerifyAccess(pair.AccessToken)
		require.NoError(t, err, "offset %s", offset)
	}

	// Expired at and after expiresAt.
	for _, offset := range []time.Duration{15 * time.Minute, 16 * time.Minute, 24 * time.Hour} {
		clock.Set(t0.Add(offset))
		_, err := auth.VerifyAccess(pair.AccessToken)
		require.ErrorIs(t, err, authority.ErrExpired, "offset %s", offset)
	}
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())
	pair0, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	pair1, err := auth.Refresh(ctx, pair0.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair0.RefreshToken, pair1.RefreshToken)

	got, err := auth.VerifyAccess(pair1.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", got)

	// The rotated-away token must be dead.
	_, err = auth.Refresh(ctx, pair0.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

func TestRotationChainIntegrity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-7")
	require.NoError(t, err)

	// Walk the chain a few generations; every hop must keep the principal.
	for i := 0; i < 4; i++ {
		clock.Advance(time.Hour)
		next, err := auth.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err, "generation %d", i)

		principal, err := auth.VerifyAccess(next.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "user-7", principal)

		pair = next
	}
}

func TestRefreshExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Second)

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, authority.ErrExpired)
}

func TestRefreshUnknownSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := memory.NewStore()
	auth, _ := newAuthority(t, st)
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	// Simulate a cleared store.
	require.NoError(t, st.Sessions().DeleteExpired(ctx, t0.Add(8*24*time.Hour)))

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, authority.ErrNotFound)
}

func TestReplayRevokesWholeChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())

	// Build chain r0 -> r1 -> r2.
	p0, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	p1, err := auth.Refresh(ctx, p0.RefreshToken)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	p2, err := auth.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)

	// Replaying the stale r0 is a compromise signal...
	clock.Advance(time.Minute)
	_, err = auth.Refresh(ctx, p0.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)

	// ...so even the never-leaked head of the chain must now be dead.
	_, err = auth.Refresh(ctx, p2.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

func TestIdempotentLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, _ := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, auth.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, auth.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, auth.Revoke(ctx, "not-even-a-token"))

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

// The concrete scenario from the design discussion: 15m access TTL, 7d
// refresh TTL, clock pinned at T0.
func TestConcreteScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, clock := newAuthority(t, memory.NewStore())

	pair0, err := auth.IssueSession(ctx, "user-42")
	require.NoError(t, err)

	// T0+10m: access token still good.
	clock.Set(t0.Add(10 * time.Minute))
	principal, err := auth.VerifyAccess(pair0.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-42", principal)

	// T0+16m: access expired, refresh succeeds.
	clock.Set(t0.Add(16 * time.Minute))
	_, err = auth.VerifyAccess(pair0.AccessToken)
	require.ErrorIs(t, err, authority.ErrExpired)

	pair1, err := auth.Refresh(ctx, pair0.RefreshToken)
	require.NoError(t, err)

	// T0+17m: replaying R0 fails and takes R1 down with it.
	clock.Set(t0.Add(17 * time.Minute))
	_, err = auth.Refresh(ctx, pair0.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)

	_, err = auth.Refresh(ctx, pair1.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

func TestMultiDeviceChainsAndRevokeAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, _ := newAuthority(t, memory.NewStore())

	phone, err := auth.IssueSession(ctx, "user-7")
	require.NoError(t, err)
	laptop, err := auth.IssueSession(ctx, "user-7")
	require.NoError(t, err)
	require.NotEqual(t, phone.RefreshToken, laptop.RefreshToken)

	// Chains are independent: refreshing one leaves the other alone.
	phone2, err := auth.Refresh(ctx, phone.RefreshToken)
	require.NoError(t, err)
	_, err = auth.Refresh(ctx, laptop.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, auth.RevokeAll(ctx, "user-7"))
	require.NoError(t, auth.RevokeAll(ctx, "user-7"), "revoke all is idempotent")

	_, err = auth.Refresh(ctx, phone2.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth, _ := newAuthority(t, memory.NewStore())
	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = auth.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, authority.ErrRevoked)
		}
	}
	require.LessOrEqual(t, wins, 1, "at most one concurrent refresh may win")
}

func TestAuthorityAgainstSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	auth, clock := newAuthority(t, st)

	pair0, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	pair1, err := auth.Refresh(ctx, pair0.RefreshToken)
	require.NoError(t, err)

	_, err = auth.Refresh(ctx, pair0.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)

	// Replay above revoked the chain; pair1 must be dead too.
	_, err = auth.Refresh(ctx, pair1.RefreshToken)
	require.ErrorIs(t, err, authority.ErrRevoked)
}

func TestKeyRotationKeepsOutstandingSessionsValid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	pemOld, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	pemNew, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	keys := tokencodec.NewKeyring()
	require.NoError(t, keys.Rotate("old", pemOld))

	auth := &authority.Authority{
		Codec:  tokencodec.New(keys, testIssuer),
		Store:  memory.NewStore(),
		Clock:  clockx.NewFake(t0),
		Issuer: testIssuer,
	}

	pair, err := auth.IssueSession(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, keys.Rotate("new", pemNew))

	// Tokens signed before the rotation still verify and refresh.
	_, err = auth.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	_, err = auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// A fully retired key ends the grace window.
	keys.Retire("old")
	_, err = auth.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, authority.ErrInvalidToken)
}
