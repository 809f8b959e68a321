package reward

import (
	"context"
	"time"

	"github.com/crowdpad/rewards-api/internal/pkg/cache"
)

// Registry is the slug -> ActionDefinition lookup table, loaded from the
// store and refreshed on a bounded TTL so new actions appear without a
// restart.
type Registry struct {
	repo Repository
	snap *cache.Snapshot
}

// NewRegistry creates an action registry. now may be nil for the wall clock.
func NewRegistry(repo Repository, ttl time.Duration, now func() time.Time) *Registry {
	return &Registry{
		repo: repo,
		snap: cache.New(ttl, now),
	}
}

func (r *Registry) load(ctx context.Context) (map[string]*ActionDefinition, error) {
	value, err := r.snap.Get(ctx, func(ctx context.Context) (interface{}, error) {
		actions, err := r.repo.ListActiveActions(ctx)
		if err != nil {
			return nil, err
		}
		bySlug := make(map[string]*ActionDefinition, len(actions))
		for _, a := range actions {
			bySlug[a.Slug] = a
		}
		return bySlug, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(map[string]*ActionDefinition), nil
}

// Lookup resolves an action slug. Unknown or inactive slugs are a hard error.
func (r *Registry) Lookup(ctx context.Context, slug string) (*ActionDefinition, error) {
	bySlug, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	def, ok := bySlug[slug]
	if !ok {
		return nil, ErrUnknownAction
	}
	return def, nil
}

// List returns every active action definition
func (r *Registry) List(ctx context.Context) ([]*ActionDefinition, error) {
	bySlug, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	actions := make([]*ActionDefinition, 0, len(bySlug))
	for _, a := range bySlug {
		actions = append(actions, a)
	}
	return actions, nil
}

// Invalidate drops the registry snapshot so the next lookup reloads
func (r *Registry) Invalidate() {
	r.snap.Invalidate()
}
