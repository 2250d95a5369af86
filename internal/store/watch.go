package store

import (
	"context"
)

// Snapshot is one full read of a live query. Err is set when the reload
// failed; the value is then the zero value and should be ignored.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Watch turns a point read into a live subscription: it loads once, then
// again after every change notice on the topics. The returned channel holds
// at most one pending snapshot, so a slow reader only ever sees the latest
// one. It is closed when ctx is done.
func Watch[T any](ctx context.Context, bus Bus, load func(context.Context) (T, error), topics ...string) (<-chan Snapshot[T], error) {
	notices, err := bus.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot[T], 1)
	go func() {
		defer close(out)
		for {
			value, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			Offer(out, Snapshot[T]{Value: value, Err: err})

			select {
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// Offer replaces any pending value in a one-slot channel with v. It must
// only be called by the channel's single writer.
func Offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
