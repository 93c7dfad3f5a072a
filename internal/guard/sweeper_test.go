package guard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int64
	s := NewSweeper(5*time.Millisecond, func(time.Time) {
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, time.Millisecond, "expected startup sweep plus at least one tick")

	cancel()
	assert.NoError(t, <-done)
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	s := NewSweeper(time.Hour, func(time.Time) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
