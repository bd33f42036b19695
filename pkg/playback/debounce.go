// ABOUTME: Debounced device resume
// ABOUTME: Coalesces bursts of resume requests into one call per quiet window
package playback

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultResumeDebounce is the quiet window before a resume fires
	DefaultResumeDebounce = 250 * time.Millisecond

	resumeTimeout = 5 * time.Second
)

// Debouncer runs fn once after requests stop arriving for window. Every
// request waiting when it fires receives the same result.
type Debouncer struct {
	window time.Duration
	fn     func(context.Context) error

	mu      sync.Mutex
	timer   *time.Timer
	waiters []chan error
	calls   int
	stopped bool
}

// NewDebouncer creates a debouncer around fn
func NewDebouncer(window time.Duration, fn func(context.Context) error) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Resume requests a call and waits for the coalesced result
func (d *Debouncer) Resume(ctx context.Context) error {
	ch := make(chan error, 1)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrClosed
	}
	d.waiters = append(d.waiters, ch)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
	d.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	waiters := d.waiters
	d.waiters = nil
	if d.stopped || len(waiters) == 0 {
		d.mu.Unlock()
		return
	}
	d.calls++
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resumeTimeout)
	err := d.fn(ctx)
	cancel()

	for _, w := range waiters {
		w <- err
	}
}

// Calls returns how many times fn has run
func (d *Debouncer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Stop cancels any pending call and fails its waiters
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	for _, w := range d.waiters {
		w <- ErrClosed
	}
	d.waiters = nil
}
