package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a cell emission")
		panic("unreachable")
	}
}

func TestCellGetReturnsCurrentValue(t *testing.T) {
	cell := NewCell(41)
	assert.Equal(t, 41, cell.Get())

	cell.Set(42)
	assert.Equal(t, 42, cell.Get())
}

func TestCellWatchDeliversCurrentThenUpdates(t *testing.T) {
	cell := NewCell("initial")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := cell.Watch(ctx)
	assert.Equal(t, "initial", next(t, ch))

	cell.Set("updated")
	assert.Equal(t, "updated", next(t, ch))
}

func TestCellSlowWatcherSeesLatestValue(t *testing.T) {
	cell := NewCell(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := cell.Watch(ctx)
	cell.Set(1)
	cell.Set(2)
	cell.Set(3)

	assert.Equal(t, 3, next(t, ch), "unconsumed intermediate values collapse to the newest")
}

func TestCellSupportsMultipleWatchers(t *testing.T) {
	cell := NewCell("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := cell.Watch(ctx)
	second := cell.Watch(ctx)
	require.Equal(t, "a", next(t, first))
	require.Equal(t, "a", next(t, second))

	cell.Set("b")
	assert.Equal(t, "b", next(t, first))
	assert.Equal(t, "b", next(t, second))
}

func TestCellWatchEndsWithContext(t *testing.T) {
	cell := NewCell(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := cell.Watch(ctx)
	next(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close after cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancellation")
	}

	// Later sets must not panic on the detached watcher.
	cell.Set(1)
}
