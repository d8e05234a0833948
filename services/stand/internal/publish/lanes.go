package publish

import (
	"context"
	"sync"
	"time"

	"eusama-go/canbus"
	"eusama-go/errcode"
	"eusama-go/x/util"
)

// ChanLanes queues at most one frame per lane and drains the lanes onto a
// canbus.Bus from a pump goroutine.
type ChanLanes struct {
	timeout time.Duration
	lanes   [NumLanes]chanLane
}

type chanLane struct {
	mu    sync.Mutex
	ch    chan canbus.Frame
	timer *time.Timer
}

// NewChanLanes builds lanes whose Send waits at most timeout for a free
// slot. A zero timeout fails immediately when the slot is taken.
func NewChanLanes(timeout time.Duration) *ChanLanes {
	c := &ChanLanes{timeout: timeout}
	for i := range c.lanes {
		c.lanes[i].ch = make(chan canbus.Frame, 1)
		t := time.NewTimer(time.Hour)
		t.Stop()
		c.lanes[i].timer = t
	}
	return c
}

func (c *ChanLanes) Send(l Lane, f canbus.Frame) error {
	if l >= NumLanes {
		return errcode.OutOfRange
	}
	ln := &c.lanes[l]
	select {
	case ln.ch <- f:
		return nil
	default:
	}
	if c.timeout <= 0 {
		return errcode.Timeout
	}

	ln.mu.Lock()
	defer ln.mu.Unlock()
	util.ResetTimer(ln.timer, c.timeout)
	select {
	case ln.ch <- f:
		if !ln.timer.Stop() {
			util.DrainTimer(ln.timer)
		}
		return nil
	case <-ln.timer.C:
		return errcode.Timeout
	}
}

// Lane exposes the queue of one lane, mainly for tests and custom pumps.
func (c *ChanLanes) Lane(l Lane) <-chan canbus.Frame { return c.lanes[l].ch }

// Pump forwards queued frames to bus until ctx is done. Each lane is
// drained by its own goroutine.
func (c *ChanLanes) Pump(ctx context.Context, bus canbus.Bus) {
	var wg sync.WaitGroup
	for i := range c.lanes {
		wg.Add(1)
		go func(l Lane) {
			defer wg.Done()
			ch := c.lanes[l].ch
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-ch:
					if err := bus.Send(ctx, f); err != nil && ctx.Err() == nil {
						println("[publish] lane", l.String(), "bus send failed:", err.Error())
					}
				}
			}
		}(Lane(i))
	}
	wg.Wait()
}
