package cache

import (
	"context"
	"fmt"

	"github.com/jalasoft/jalanews/internal/store"
)

// Bus carries store change notices over Redis pub/sub so that every server
// instance sharing a database reloads its live views.
type Bus struct {
	cache *Cache
}

var _ store.Bus = (*Bus)(nil)

// NewBus creates a Redis-backed change bus.
func NewBus(c *Cache) (*Bus, error) {
	if !c.Enabled() {
		return nil, ErrCacheDisabled
	}
	return &Bus{cache: c}, nil
}

func (b *Bus) channel(topic string) string {
	return b.cache.namespaceKey("changes:" + topic)
}

// Publish sends one notice per topic in a single round trip.
func (b *Bus) Publish(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	pipe := b.cache.client.Pipeline()
	for _, topic := range topics {
		pipe.Publish(ctx, b.channel(topic), "1")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish change notice: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning,
// so no notice published afterwards is missed.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = b.channel(topic)
	}

	ps := b.cache.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to change notices: %w", err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				store.Notify(out)
			}
		}
	}()
	return out, nil
}
