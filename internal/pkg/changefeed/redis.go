package changefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const channelPrefix = "feed:"

// RedisFeed fans events out over Redis Pub/Sub so every API instance sees
// every change, mirroring how the row changes would arrive from a hosted
// realtime channel.
type RedisFeed struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedisFeed creates a Redis-backed feed. client must not be nil; use New
// to fall back to an in-process feed when Redis is not configured.
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// New returns the feed for the configured transport: Redis-backed when a
// client is available, in-process otherwise.
func New(client *redis.Client) Feed {
	if client == nil {
		log.Warn().Msg("redis not configured, change feed runs in-process only")
		return NewMemoryFeed()
	}
	return NewRedisFeed(client)
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channelPrefix+topic, payload).Err()
}

// Subscribe starts a dedicated receive loop for the topic. The returned
// cancel closes the underlying Pub/Sub and waits for the loop to exit, so a
// cancelled subscription never leaks its goroutine.
func (f *RedisFeed) Subscribe(topic string, h Handler) (CancelFunc, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	pubsub := f.client.Subscribe(context.Background(), channelPrefix+topic)
	f.subs[pubsub] = struct{}{}
	f.mu.Unlock()

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(context.Background()); err != nil {
		f.remove(pubsub)
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("change feed payload decode failed")
				continue
			}
			runHandler(topic, h, ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.remove(pubsub)
			if err := pubsub.Close(); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("change feed unsubscribe failed")
			}
			<-done
		})
	}
	return cancel, nil
}

// Close tears down every open subscription.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	subs := make([]*redis.PubSub, 0, len(f.subs))
	for ps := range f.subs {
		subs = append(subs, ps)
	}
	f.subs = make(map[*redis.PubSub]struct{})
	f.mu.Unlock()

	for _, ps := range subs {
		ps.Close()
	}
	return nil
}

func (f *RedisFeed) remove(pubsub *redis.PubSub) {
	f.mu.Lock()
	delete(f.subs, pubsub)
	f.mu.Unlock()
}

func runHandler(topic string, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("topic", topic).Msg("change feed handler panicked")
		}
	}()
	h(context.Background(), ev)
}
