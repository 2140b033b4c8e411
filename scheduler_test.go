package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingIngester struct {
	runs atomic.Int32
}

func (c *countingIngester) Ingest(ctx context.Context, newRun bool) (*IngestReport, error) {
	c.runs.Add(1)
	return &IngestReport{}, nil
}

func TestSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	ing := &countingIngester{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewScheduler("@every 1s", ing).Run(ctx) }()

	assert.Eventually(t, func() bool { return ing.runs.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	ing := &countingIngester{}

	err := NewScheduler("not a schedule", ing).Run(context.Background())

	assert.Error(t, err)
	assert.Zero(t, ing.runs.Load())
}
