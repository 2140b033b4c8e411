package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalThrottleSpacesCalls(t *testing.T) {
	throttle := NewIntervalThrottle(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, throttle.Wait(ctx))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "first call should not wait")

	require.NoError(t, throttle.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestIntervalThrottleDisabled(t *testing.T) {
	throttle := NewIntervalThrottle(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, throttle.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestIntervalThrottleCanceled(t *testing.T) {
	throttle := NewIntervalThrottle(time.Hour)
	require.NoError(t, throttle.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, throttle.Wait(ctx))
}
