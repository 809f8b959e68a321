package tier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type tierRepoStub struct {
	tiers []*Tier
	err   error
	calls int
}

func (r *tierRepoStub) ListActive(context.Context) ([]*Tier, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.tiers, nil
}

func (r *tierRepoStub) GetByID(context.Context, uuid.UUID) (*Tier, error) { return nil, nil }

func TestCatalogServesSnapshotWithinTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	repo := &tierRepoStub{tiers: catalog()}
	c := NewCatalog(repo, 5*time.Minute, clock)

	for i := 0; i < 3; i++ {
		if _, err := c.ListActive(context.Background()); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected 1 repo call within TTL, got %d", repo.calls)
	}

	now = now.Add(6 * time.Minute)
	if _, err := c.ListActive(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", repo.calls)
	}
}

func TestCatalogServesStaleOnReloadFailure(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	repo := &tierRepoStub{tiers: catalog()}
	c := NewCatalog(repo, time.Minute, clock)

	if _, err := c.ListActive(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	repo.err = errors.New("db down")
	now = now.Add(2 * time.Minute)

	tiers, err := c.ListActive(context.Background())
	if err != nil {
		t.Fatalf("expected stale snapshot, got err: %v", err)
	}
	if len(tiers) != 4 {
		t.Fatalf("expected 4 stale tiers, got %d", len(tiers))
	}
}

func TestCatalogInvalidateForcesReload(t *testing.T) {
	repo := &tierRepoStub{tiers: catalog()}
	c := NewCatalog(repo, time.Hour, nil)

	if _, _, err := c.Resolve(context.Background(), 100); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c.Invalidate()
	if _, _, err := c.Resolve(context.Background(), 100); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", repo.calls)
	}
}
