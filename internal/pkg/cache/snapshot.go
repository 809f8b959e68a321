package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LoadFunc fetches a fresh snapshot value.
type LoadFunc func(ctx context.Context) (interface{}, error)

// Snapshot is a single-value TTL cache. Callers tolerate a stale-but-valid
// snapshot: when a reload fails and a previous value exists, the previous
// value is served instead of the error.
type Snapshot struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	value    interface{}
	loadedAt time.Time
	loaded   bool
}

// New creates a snapshot cache. now may be nil, in which case time.Now is
// used; tests inject their own clock.
func New(ttl time.Duration, now func() time.Time) *Snapshot {
	if now == nil {
		now = time.Now
	}
	return &Snapshot{ttl: ttl, now: now}
}

// Get returns the cached value, reloading it through load when the TTL has
// elapsed or nothing has been loaded yet.
func (s *Snapshot) Get(ctx context.Context, load LoadFunc) (interface{}, error) {
	s.mu.RLock()
	if s.loaded && s.now().Sub(s.loadedAt) < s.ttl {
		value := s.value
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if s.loaded && s.now().Sub(s.loadedAt) < s.ttl {
		return s.value, nil
	}

	value, err := load(ctx)
	if err != nil {
		if s.loaded {
			log.Warn().Err(err).Msg("snapshot reload failed, serving stale value")
			return s.value, nil
		}
		return nil, err
	}

	s.value = value
	s.loadedAt = s.now()
	s.loaded = true
	return value, nil
}

// Invalidate drops the cached value so the next Get reloads.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.value = nil
}
