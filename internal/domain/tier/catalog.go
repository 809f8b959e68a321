package tier

import (
	"context"
	"time"

	"github.com/crowdpad/rewards-api/internal/pkg/cache"
)

// Catalog serves the ordered active tier list from a bounded-TTL snapshot.
// Thresholds change rarely, so callers get a stale-but-valid snapshot rather
// than a round trip per lookup.
type Catalog struct {
	repo Repository
	snap *cache.Snapshot
}

// NewCatalog creates a catalog over repo. now may be nil for the wall clock.
func NewCatalog(repo Repository, ttl time.Duration, now func() time.Time) *Catalog {
	return &Catalog{
		repo: repo,
		snap: cache.New(ttl, now),
	}
}

// ListActive returns active tiers ascending by minimum amount.
func (c *Catalog) ListActive(ctx context.Context) ([]*Tier, error) {
	value, err := c.snap.Get(ctx, func(ctx context.Context) (interface{}, error) {
		tiers, err := c.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return tiers, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]*Tier), nil
}

// Resolve maps an amount to a tier using the current snapshot.
func (c *Catalog) Resolve(ctx context.Context, amount float64) (*Tier, bool, error) {
	tiers, err := c.ListActive(ctx)
	if err != nil {
		return nil, false, err
	}
	t, ok := Resolve(amount, tiers)
	return t, ok, nil
}

// Invalidate drops the snapshot so the next lookup reloads from the store.
// Called by the reconciliation listener when a tier row changes.
func (c *Catalog) Invalidate() {
	c.snap.Invalidate()
}
