package statemachine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testInterval = 10 * time.Millisecond

// TestCountdownNaturalExpiry verifies a 5-step countdown ticks exactly four
// times and fires the terminal action exactly once.
func TestCountdownNaturalExpiry(t *testing.T) {
	t.Parallel()

	var ticks, terminals atomic.Int32

	newCountdown(5, testInterval,
		func() { terminals.Add(1) },
		func() { ticks.Add(1) })

	require.Eventually(t, func() bool {
		return terminals.Load() == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, int32(4), ticks.Load())

	// Expiry is one-shot.
	time.Sleep(5 * testInterval)
	require.Equal(t, int32(1), terminals.Load())
	require.Equal(t, int32(4), ticks.Load())
}

// TestCountdownStop verifies cancellation suppresses the terminal action.
func TestCountdownStop(t *testing.T) {
	t.Parallel()

	var ticks, terminals atomic.Int32

	c := newCountdown(5, testInterval,
		func() { terminals.Add(1) },
		func() { ticks.Add(1) })

	// Stop partway through, then wait well past the natural expiry.
	time.Sleep(2 * testInterval)
	c.Stop()
	time.Sleep(8 * testInterval)

	require.Zero(t, terminals.Load())
	require.LessOrEqual(t, ticks.Load(), int32(3))

	// Stop is idempotent.
	c.Stop()
}

// TestCountdownSingleStep checks that a one-second countdown never ticks.
func TestCountdownSingleStep(t *testing.T) {
	t.Parallel()

	var ticks, terminals atomic.Int32

	newCountdown(1, testInterval,
		func() { terminals.Add(1) },
		func() { ticks.Add(1) })

	require.Eventually(t, func() bool {
		return terminals.Load() == 1
	}, time.Second, time.Millisecond)

	require.Zero(t, ticks.Load())
}

// TestCountdownNilTick allows countdowns without a per-step action.
func TestCountdownNilTick(t *testing.T) {
	t.Parallel()

	var terminals atomic.Int32

	newCountdown(2, testInterval, func() { terminals.Add(1) }, nil)

	require.Eventually(t, func() bool {
		return terminals.Load() == 1
	}, time.Second, time.Millisecond)
}
