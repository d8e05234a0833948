// Package sched turns two periodic tick sources into one-shot 1 ms and
// 10 ms flags polled by the main loop.
package sched

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock holds the tick flags and the monotonic 10 ms counter. The ISR side
// (FastISR/SlowISR) and the loop side (Poll*) may run on different
// goroutines.
type Clock struct {
	fast atomic.Bool
	slow atomic.Bool

	t10ms    atomic.Uint32
	phase10  atomic.Uint32 // 0..9
	phase100 atomic.Uint32 // 0..99

	fastOverruns atomic.Uint32
	slowOverruns atomic.Uint32
}

// FastISR raises the 1 ms flag. A tick that arrives before the previous one
// was consumed is lost and counted.
func (c *Clock) FastISR() {
	if c.fast.Swap(true) {
		c.fastOverruns.Add(1)
	}
}

// SlowISR raises the 10 ms flag and advances the counter and phases.
func (c *Clock) SlowISR() {
	c.t10ms.Add(1)
	if p := c.phase10.Load() + 1; p >= 10 {
		c.phase10.Store(0)
	} else {
		c.phase10.Store(p)
	}
	if p := c.phase100.Load() + 1; p >= 100 {
		c.phase100.Store(0)
	} else {
		c.phase100.Store(p)
	}
	if c.slow.Swap(true) {
		c.slowOverruns.Add(1)
	}
}

// PollFast reports a pending 1 ms tick and clears it.
func (c *Clock) PollFast() bool { return c.fast.Swap(false) }

// PollSlow reports a pending 10 ms tick and clears it.
func (c *Clock) PollSlow() bool { return c.slow.Swap(false) }

func (c *Clock) Now10ms() uint32 { return c.t10ms.Load() }

// Phase10 is the slow-tick count modulo 10; 0 marks every 10th tick.
func (c *Clock) Phase10() uint32 { return c.phase10.Load() }

// Phase100 is the slow-tick count modulo 100.
func (c *Clock) Phase100() uint32 { return c.phase100.Load() }

// Overruns returns the lost fast and slow ticks.
func (c *Clock) Overruns() (fast, slow uint32) {
	return c.fastOverruns.Load(), c.slowOverruns.Load()
}

// Run drives the ISRs from tickers until ctx is done. notify, if non-nil,
// receives a non-blocking wake-up after every tick.
func (c *Clock) Run(ctx context.Context, fast, slow time.Duration, notify chan<- struct{}) {
	if fast <= 0 {
		fast = time.Millisecond
	}
	if slow <= 0 {
		slow = 10 * time.Millisecond
	}
	ft := time.NewTicker(fast)
	st := time.NewTicker(slow)
	defer ft.Stop()
	defer st.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ft.C:
			c.FastISR()
		case <-st.C:
			c.SlowISR()
		}
		if notify != nil {
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}
