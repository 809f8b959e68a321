package changefeed

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedClosed is returned when subscribing to or publishing on a feed that
// has been shut down.
var ErrFeedClosed = errors.New("change feed closed")

type memorySub struct {
	topic   string
	handler Handler
}

// MemoryFeed is an in-process feed used when Redis is not configured and in
// tests. Delivery is synchronous per publish, which keeps test assertions
// deterministic.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	closed bool
}

// NewMemoryFeed creates an in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[*memorySub]struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context, topic string, ev Event) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return ErrFeedClosed
	}
	targets := make([]*memorySub, 0, len(f.subs))
	for sub := range f.subs {
		if sub.topic == topic {
			targets = append(targets, sub)
		}
	}
	f.mu.RUnlock()

	for _, sub := range targets {
		runHandler(topic, sub.handler, ev)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(topic string, h Handler) (CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedClosed
	}

	sub := &memorySub{topic: topic, handler: h}
	f.subs[sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub)
			f.mu.Unlock()
		})
	}
	return cancel, nil
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[*memorySub]struct{})
	return nil
}
