package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("api", 2, 1))
	assert.True(t, l.Allow("api", 2, 1))
	assert.False(t, l.Allow("api", 2, 1))
	assert.True(t, l.Allow("other", 2, 1), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("api", 2, 1))
	assert.False(t, l.Allow("api", 2, 1))
}

func TestLimiter_Wait(t *testing.T) {
	l := New()
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "k", 1, 100))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "k", 1, 100))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Wait(ctx, "k", 1, 0.001))

	start := time.Now()
	assert.Error(t, l.Wait(ctx, "k", 1, 0.001))
	assert.Less(t, time.Since(start), time.Second, "gives up before the deadline instead of sleeping")
}

func TestLimiter_RateChange(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("api", 1, 1))
	assert.False(t, l.Allow("api", 1, 1))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("api", 3, 1))
	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("api", 3, 1))
	assert.True(t, l.Allow("api", 3, 1))
	assert.False(t, l.Allow("api", 3, 1))
}
