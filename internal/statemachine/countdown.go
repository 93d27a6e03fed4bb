package statemachine

import (
	"sync/atomic"
	"time"
)

// Countdown is a self-terminating timed action. It starts counting on
// construction in its own goroutine, stepping once per second from the
// configured count down to one. The per-tick function runs before every step
// except the first; the terminal function runs exactly once when the count
// reaches zero without cancellation.
//
// Cancellation is cooperative: the flag is checked once per step, so Stop is
// granular to roughly one second and never interrupts an in-progress sleep.
// A Countdown is not restartable; create a fresh one per countdown.
type Countdown struct {
	cancelled atomic.Bool
	interval  time.Duration
}

// NewCountdown starts a countdown of the given number of seconds.
func NewCountdown(seconds int, terminal, tick func()) *Countdown {
	return newCountdown(seconds, time.Second, terminal, tick)
}

// newCountdown lets tests shrink the step interval.
func newCountdown(seconds int, interval time.Duration, terminal, tick func()) *Countdown {
	c := &Countdown{interval: interval}
	go c.run(seconds, terminal, tick)

	return c
}

func (c *Countdown) run(seconds int, terminal, tick func()) {
	for i := seconds; i > 0; i-- {
		if c.cancelled.Load() {
			return
		}

		if tick != nil && i < seconds {
			tick()
		}

		time.Sleep(c.interval)
	}

	if c.cancelled.Load() {
		return
	}

	terminal()
}

// Stop cancels the countdown. It is safe to call multiple times and after
// natural expiry.
func (c *Countdown) Stop() {
	c.cancelled.Store(true)
}
