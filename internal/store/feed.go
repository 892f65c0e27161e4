package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// ChangeFeed carries change events from writers to live subscribers.
type ChangeFeed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, collection, workspaceID string) (Feed, error)
}

// RedisFeed fans change events out over redis pub/sub. Each
// (collection, workspace) pair gets its own channel, so subscribers only
// receive events for the tenant they are bound to.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a change feed over the given redis client.
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func feedChannel(collection, workspaceID string) string {
	return fmt.Sprintf("atlvs:changes:%s:%s", collection, workspaceID)
}

// Publish implements ChangeFeed.
func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}

	channel := feedChannel(event.Collection, event.WorkspaceID)

	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

// Subscribe implements ChangeFeed.
func (f *RedisFeed) Subscribe(ctx context.Context, collection, workspaceID string) (Feed, error) {
	channel := feedChannel(collection, workspaceID)
	pubsub := f.client.Subscribe(ctx, channel)

	// Force the subscription onto the wire before returning so events
	// published after Subscribe are never missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	feed := &redisSubscription{
		pubsub: pubsub,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	go feed.pump(pubsub.Channel())

	return feed, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) pump(messages <-chan *redis.Message) {
	defer close(s.events)

	for message := range messages {
		var event Event

		if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", message.Channel).Msg("discarding malformed change event")

			continue
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

// Events implements Feed.
func (s *redisSubscription) Events() <-chan Event {
	return s.events
}

// Close implements Feed. Closing twice is safe.
func (s *redisSubscription) Close() error {
	var err error

	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})

	return err
}
