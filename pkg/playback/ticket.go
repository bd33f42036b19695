// ABOUTME: Completion handle for a queued playback item
// ABOUTME: Resolves exactly once with nil or the item's failure
package playback

import (
	"context"
	"sync"
)

// Ticket tracks one queued item
type Ticket struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

// resolve settles the ticket; it reports whether this call settled it
func (t *Ticket) resolve(err error) bool {
	settled := false
	t.once.Do(func() {
		t.err = err
		close(t.done)
		settled = true
	})
	return settled
}

// Done is closed once the item is resolved
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the item's failure, or nil while pending or on success
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the item resolves or ctx ends
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
