package clockx_test

import (
	"testing"
	"time"

	"github.com/quollsec/sessiond/pkg/clockx"
	"github.com/stretchr/testify/require"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := clockx.NewFake(t0)

	require.Equal(t, t0, c.Now())

	c.Advance(15 * time.Minute)
	require.Equal(t, t0.Add(15*time.Minute), c.Now())

	c.Set(t0)
	require.Equal(t, t0, c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()

	now := clockx.System{}.Now()
	require.Equal(t, time.UTC, now.Location())
}
