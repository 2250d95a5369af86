package store

import (
	"context"
	"sync"
)

// Bus carries change notices. A notice only says that something under a
// topic changed; subscribers reload the snapshot they care about.
type Bus interface {
	Publish(ctx context.Context, topics ...string) error
	// Subscribe returns a channel that receives a value after one or more
	// notices on any of the topics. Bursts coalesce into one value. The
	// channel is closed once ctx is done.
	Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error)
}

// LocalBus is an in-process Bus.
type LocalBus struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan struct{}
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish wakes every subscriber of the topics without blocking.
func (b *LocalBus) Publish(_ context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		for s := range b.subs[topic] {
			Notify(s.ch)
		}
	}
	return nil
}

// Subscribe registers for notices on the topics until ctx is done.
func (b *LocalBus) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	s := &subscriber{ch: make(chan struct{}, 1)}

	b.mu.Lock()
	for _, topic := range topics {
		set, ok := b.subs[topic]
		if !ok {
			set = make(map[*subscriber]struct{})
			b.subs[topic] = set
		}
		set[s] = struct{}{}
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for _, topic := range topics {
			delete(b.subs[topic], s)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		}
		close(s.ch)
		b.mu.Unlock()
	}()

	return s.ch, nil
}

// Notify performs a coalescing send on a one-slot channel.
func Notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
