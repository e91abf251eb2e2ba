package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(_ context.Context) (int, error) { return 0, errors.New("fail") }

func succeeding(_ context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("processdb", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Guard(ctx, b, failing)
		require.Error(t, err)
	}
	assert.Equal(t, Open, b.State())

	_, err := Guard(ctx, b, func(_ context.Context) (int, error) {
		t.Fatal("must not be called while open")
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("processdb", 2, time.Minute)
	ctx := context.Background()

	_, _ = Guard(ctx, b, failing)
	_, err := Guard(ctx, b, succeeding)
	require.NoError(t, err)
	_, _ = Guard(ctx, b, failing)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("processdb", 1, 30*time.Second)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Guard(ctx, b, failing)
	assert.Equal(t, Open, b.State())

	now = now.Add(31 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	v, err := Guard(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("processdb", 1, 10*time.Second)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Guard(ctx, b, failing)
	now = now.Add(11 * time.Second)
	_, err := Guard(ctx, b, failing)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOpen)
	assert.Equal(t, Open, b.State())
}

func TestBreaker_CancelledCallerDoesNotTrip(t *testing.T) {
	b := NewBreaker("processdb", 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Guard(ctx, b, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	require.Error(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
