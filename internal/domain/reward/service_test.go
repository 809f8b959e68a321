package reward

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

type completionRepoStub struct {
	actionRepoStub
	completions map[string]*Completion
}

func newCompletionRepoStub(actions []*ActionDefinition) *completionRepoStub {
	return &completionRepoStub{
		actionRepoStub: actionRepoStub{actions: actions},
		completions:    map[string]*Completion{},
	}
}

func (r *completionRepoStub) InsertCompletion(_ context.Context, c *Completion) (bool, error) {
	key := c.UserID.String() + "|" + c.ActionSlug + "|" + c.ReferenceID
	if _, ok := r.completions[key]; ok {
		return true, nil
	}
	r.completions[key] = c
	return false, nil
}

func newTestService(feed changefeed.Feed) (*Service, *completionRepoStub) {
	repo := newCompletionRepoStub(testActions())
	registry := NewRegistry(repo, time.Hour, nil)
	engine := NewEngine(registry, &tierStub{tiers: testTiers()}, &ledgerStub{}, nil, 10)
	return NewService(repo, engine, feed, nil), repo
}

func TestCompleteActionRecordsHistory(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	var published []changefeed.Event
	if _, err := feed.Subscribe(CompletionsTopic, func(_ context.Context, ev changefeed.Event) {
		published = append(published, ev)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc, repo := newTestService(feed)
	userID := uuid.New()

	result, err := svc.CompleteAction(context.Background(), userID, "backer", ActionGenesisQuest, "signup")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if result.CreditsAwarded != 500 {
		t.Fatalf("expected 500 quest credits, got %d", result.CreditsAwarded)
	}
	if len(repo.completions) != 1 {
		t.Fatalf("expected 1 completion row, got %d", len(repo.completions))
	}
	if len(published) != 1 || published[0].Type != changefeed.EventInsert {
		t.Fatalf("expected one completion insert event, got %+v", published)
	}
}

func TestCompleteActionReplayPublishesOnce(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	var published int
	if _, err := feed.Subscribe(CompletionsTopic, func(context.Context, changefeed.Event) {
		published++
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc, repo := newTestService(feed)
	userID := uuid.New()

	if _, err := svc.CompleteAction(context.Background(), userID, "backer", ActionGenesisQuest, "signup"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	result, err := svc.CompleteAction(context.Background(), userID, "backer", ActionGenesisQuest, "signup")
	if err != nil {
		t.Fatalf("replay must succeed, got %v", err)
	}
	if !result.Duplicate {
		t.Fatal("replay must report duplicate")
	}
	if len(repo.completions) != 1 {
		t.Fatalf("expected one completion row, got %d", len(repo.completions))
	}
	if published != 1 {
		t.Fatalf("expected one published event, got %d", published)
	}
}

func TestCompleteActionUnknownSlug(t *testing.T) {
	svc, _ := newTestService(nil)
	if _, err := svc.CompleteAction(context.Background(), uuid.New(), "backer", "no_such_action", "ref"); err != ErrUnknownAction {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
