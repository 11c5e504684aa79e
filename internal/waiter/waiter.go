// Package waiter delivers gateway events to goroutines blocked on a
// predicate. Each wait owns a single-slot channel; Dispatch evaluates the
// predicate before delivering, so a waiter only ever wakes for an event it
// asked for.
package waiter

import (
	"context"
	"sync"
)

type pending[T any] struct {
	match func(T) bool
	ch    chan T
}

// Dispatcher fans events out to registered one-shot waits. The zero value is
// ready to use and safe for concurrent use.
type Dispatcher[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	waiting map[uint64]*pending[T]
}

// Wait blocks until an event satisfying match is dispatched or ctx is done.
// The returned error is ctx.Err() on timeout or cancellation.
func (d *Dispatcher[T]) Wait(ctx context.Context, match func(T) bool) (T, error) {
	p := &pending[T]{match: match, ch: make(chan T, 1)}

	d.mu.Lock()
	if d.waiting == nil {
		d.waiting = make(map[uint64]*pending[T])
	}
	id := d.nextID
	d.nextID++
	d.waiting[id] = p
	d.mu.Unlock()

	select {
	case ev := <-p.ch:
		return ev, nil
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.waiting, id)
		d.mu.Unlock()

		// Dispatch may have delivered between ctx firing and the delete.
		select {
		case ev := <-p.ch:
			return ev, nil
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Dispatch hands ev to every waiter whose predicate accepts it. Each matched
// waiter is removed, so it receives at most one event.
func (d *Dispatcher[T]) Dispatch(ev T) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	delivered := 0
	for id, p := range d.waiting {
		if p.match != nil && !p.match(ev) {
			continue
		}
		p.ch <- ev
		delete(d.waiting, id)
		delivered++
	}
	return delivered
}

// Pending returns the number of outstanding waits.
func (d *Dispatcher[T]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiting)
}
