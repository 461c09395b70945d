package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/service"
	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/internal/store/drivers/memory"
	"github.com/quollsec/sessiond/pkg/clockx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleansExpiredSessions(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockx.NewFake(now)

	require.NoError(t, st.Sessions().Put(ctx, domain.SessionRecord{
		SessionID:   "dead",
		PrincipalID: "p1",
		IssuedAt:    now.Add(-8 * 24 * time.Hour),
		ExpiresAt:   now.Add(-24 * time.Hour),
	}))
	require.NoError(t, st.Sessions().Put(ctx, domain.SessionRecord{
		SessionID:   "live",
		PrincipalID: "p1",
		IssuedAt:    now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	hk := service.NewHousekeepingService(st, clock, logger, time.Hour)

	// Start runs an immediate cleanup before the first tick.
	hk.Start()
	hk.Stop()

	_, err := st.Sessions().Get(ctx, "dead")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Sessions().Get(ctx, "live")
	require.NoError(t, err)
}

func TestHousekeepingStopIsClean(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	hk := service.NewHousekeepingService(memory.NewStore(), clockx.System{}, logger, time.Millisecond)

	hk.Start()
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		hk.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("housekeeping did not stop in time")
	}
}
