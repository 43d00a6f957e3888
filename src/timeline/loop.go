// Package timeline runs dashboard state changes on one goroutine. Timers
// post their callbacks back to the loop, so a cancelled handle can never run
// after Cancel returns.
package timeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when work is posted to a stopped loop.
var ErrStopped = errors.New("timeline: loop stopped")

// Loop serializes work items.
type Loop struct {
	clock Clock
	work  chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewLoop starts the loop goroutine.
func NewLoop(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock()
	}
	l := &Loop{
		clock: clock,
		work:  make(chan func(), 256),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.work:
			fn()
		}
	}
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock { return l.clock }

// -----------------------------------------------------------------------------

// Post queues fn. It reports false when the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.work <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Stop ends the loop. Queued work that has not started is dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
}

// -----------------------------------------------------------------------------

// Handle is a scheduled callback. Its fields are owned by the loop.
type Handle struct {
	timer     Timer
	cancelled bool
	fired     bool
}

// After schedules fn on the loop after d. Call it from the loop.
func (l *Loop) After(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.timer = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if h.cancelled {
				return
			}
			h.fired = true
			fn()
		})
	})
	return h
}

// Cancel prevents the callback from running. Call it from the loop.
// Cancelling twice, or after the callback ran, is a no-op.
func (h *Handle) Cancel() {
	if h == nil || h.cancelled {
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Active reports whether the callback is still pending.
func (h *Handle) Active() bool {
	return h != nil && !h.cancelled && !h.fired
}
