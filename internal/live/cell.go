package live

import (
	"context"
	"sync"
)

// Cell is a last-value-cached observable. Get returns the current value
// synchronously; Watch delivers the current value immediately and then every
// subsequent Set, to any number of watchers. A watcher that falls behind
// sees the most recent value, not every intermediate one.
type Cell[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]chan T
	next  int
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and notifies all watchers.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
			// Watcher hasn't consumed the previous value; replace it.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Watch returns a channel that yields the current value and then every
// update until ctx ends, at which point the channel is closed.
func (c *Cell[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	ch <- c.value
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		close(ch)
	}()

	return ch
}
