package live

import (
	"context"
	"sync"
)

// Tracker is the change-notification bus behind live queries. Writers call
// Invalidate with the tables they touched; every watcher registered on any
// of those tables gets a wake-up signal. The embedded store cannot push
// change events itself, so this is what turns writes into re-queries.
type Tracker struct {
	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]chan struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{watchers: make(map[string]map[int]chan struct{})}
}

// Invalidate wakes every watcher observing any of the given tables. Signals
// coalesce: a watcher with an unconsumed pending signal is not woken twice,
// and a watcher registered on several of the tables fires once.
func (t *Tracker) Invalidate(tables ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	signalled := make(map[int]bool, len(tables))
	for _, table := range tables {
		for id, ch := range t.watchers[table] {
			if signalled[id] {
				continue
			}
			signalled[id] = true
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Watch returns a signal channel that fires after any of the given tables
// changes. The registration is removed and the channel closed when ctx ends.
func (t *Tracker) Watch(ctx context.Context, tables ...string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	for _, table := range tables {
		m := t.watchers[table]
		if m == nil {
			m = make(map[int]chan struct{})
			t.watchers[table] = m
		}
		m[id] = ch
	}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		for _, table := range tables {
			delete(t.watchers[table], id)
			if len(t.watchers[table]) == 0 {
				delete(t.watchers, table)
			}
		}
		t.mu.Unlock()
		// Invalidate sends only to registered channels while holding the
		// lock, so closing after removal cannot race a send.
		close(ch)
	}()

	return ch
}
