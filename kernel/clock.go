package kernel

import (
	"context"
	"sync"
	"time"
)

// Clock counts timer ticks. The counter and the wait channel share one lock:
// every read-modify-write of the counter and every sleep/wake transition
// happens under mu.
type Clock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ticks uint64
}

func NewClock() *Clock {
	c := &Clock{}
	c.cond = sync.NewCond(&c.mu)

	return c
}

func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ticks
}

// Advance is the timer interrupt: one tick, then wake every sleeper.
func (c *Clock) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticks++
	c.cond.Broadcast()
}

// Wake rouses sleepers without advancing time so they re-check their
// cancellation condition.
func (c *Clock) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cond.Broadcast()
}

// WaitUntil blocks until the tick counter reaches deadline. cancel is checked
// before every sleep; if it reports true the wait fails with ErrKilled.
// Cancelling ctx also ends the wait.
func (c *Clock) WaitUntil(ctx context.Context, deadline uint64, cancel func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.waitLocked(ctx, func() bool { return c.ticks >= deadline }, cancel)
}

// Sleep waits for n ticks to pass. Negative n is treated as zero, which still
// reports ErrKilled if cancel is already true.
func (c *Clock) Sleep(ctx context.Context, n int64, cancel func() bool) error {
	if n < 0 {
		n = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.ticks

	if n == 0 {
		if cancel != nil && cancel() {
			return ErrKilled
		}
		return nil
	}

	return c.waitLocked(ctx, func() bool { return c.ticks-start >= uint64(n) }, cancel)
}

func (c *Clock) waitLocked(ctx context.Context, done func() bool, cancel func() bool) error {
	stop := context.AfterFunc(ctx, c.Wake)
	defer stop()

	for !done() {
		if cancel != nil && cancel() {
			return ErrKilled
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		c.cond.Wait()
	}

	return nil
}

// Run drives the clock from a ticker until ctx is done.
func (c *Clock) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance()
		}
	}
}
