package gate

import (
	"context"
	"sync/atomic"
	"time"
)

// CountdownConfig tunes a Countdown. Zero values mean a one-second tick and
// the wall clock.
type CountdownConfig struct {
	Tick     time.Duration
	Now      func() time.Time
	OnTick   func(remaining time.Duration)
	OnExpire func()
}

// Countdown is the cancellable task that re-checks a link expiry on every
// tick. It fires OnExpire once, the first time the remaining time goes
// negative, and then stops. Callbacks run on the task goroutine and must not
// call Stop.
type Countdown struct {
	cfg     CountdownConfig
	cancel  context.CancelFunc
	done    chan struct{}
	expired atomic.Bool
}

// StartCountdown runs a countdown to expiresAt until it expires, Stop is
// called or ctx is done.
func StartCountdown(ctx context.Context, expiresAt time.Time, cfg CountdownConfig) *Countdown {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Countdown{cfg: cfg, cancel: cancel, done: make(chan struct{})}
	go c.run(ctx, expiresAt)
	return c
}

func (c *Countdown) run(ctx context.Context, expiresAt time.Time) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()
	for {
		remaining := expiresAt.Sub(c.cfg.Now())
		if remaining < 0 {
			c.expired.Store(true)
			if c.cfg.OnExpire != nil {
				c.cfg.OnExpire()
			}
			return
		}
		if c.cfg.OnTick != nil {
			c.cfg.OnTick(remaining)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the task and waits until it has exited. It is safe to call
// more than once.
func (c *Countdown) Stop() {
	c.cancel()
	<-c.done
}

// Done is closed when the task ends, by expiry or cancellation.
func (c *Countdown) Done() <-chan struct{} { return c.done }

func (c *Countdown) Expired() bool { return c.expired.Load() }
