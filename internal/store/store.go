package store

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
)

// watch runs query once immediately and then again after every invalidation
// of the given tables, sending each result to the returned channel. The
// channel closes when ctx ends. A failed re-query is logged and skipped; the
// subscription stays alive.
func watch[T any](ctx context.Context, log zerolog.Logger, tracker *live.Tracker, tables []string, query func() (T, error)) <-chan T {
	out := make(chan T, 1)
	signal := tracker.Watch(ctx, tables...)

	go func() {
		defer close(out)
		for {
			v, err := query()
			if err != nil {
				log.Error().Err(err).Strs("tables", tables).Msg("live query failed")
			} else {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-signal:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}
