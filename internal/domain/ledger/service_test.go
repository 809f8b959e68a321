package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

type storeStub struct {
	entries []*Entry
	balance *Balance

	sweepResult []*Entry
	forfeited   int
	forfeitedCr int64
}

func (s *storeStub) Append(_ context.Context, e *Entry) (*Entry, bool, error) {
	for _, existing := range s.entries {
		if existing.UserID == e.UserID &&
			existing.SourceEvent == e.SourceEvent &&
			existing.SourceEventID == e.SourceEventID {
			return existing, true, nil
		}
	}
	s.entries = append(s.entries, e)
	return e, false, nil
}

func (s *storeStub) GetBySourceEvent(_ context.Context, userID uuid.UUID, sourceEvent, sourceEventID string) (*Entry, error) {
	for _, e := range s.entries {
		if e.UserID == userID && e.SourceEvent == sourceEvent && e.SourceEventID == sourceEventID {
			return e, nil
		}
	}
	return nil, nil
}

func (s *storeStub) GetBalance(context.Context, uuid.UUID) (*Balance, error) { return s.balance, nil }
func (s *storeStub) ListByUser(context.Context, uuid.UUID, int, int) ([]*Entry, error) {
	return s.entries, nil
}
func (s *storeStub) CountByUser(context.Context, uuid.UUID) (int, error) { return len(s.entries), nil }
func (s *storeStub) SweepDue(context.Context, Schedule, time.Time, int) ([]*Entry, error) {
	return s.sweepResult, nil
}
func (s *storeStub) Forfeit(context.Context, uuid.UUID) (int, int64, error) {
	return s.forfeited, s.forfeitedCr, nil
}
func (s *storeStub) Recompute(context.Context, uuid.UUID) (*Balance, error) { return s.balance, nil }

func TestAppendRejectsInvalidInput(t *testing.T) {
	svc := NewService(&storeStub{}, nil, testSchedule, nil)

	if _, _, err := svc.Append(context.Background(), uuid.New(), 0, "contribution", "pay_1"); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for zero credits, got %v", err)
	}
	if _, _, err := svc.Append(context.Background(), uuid.New(), -5, "contribution", "pay_1"); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for negative credits, got %v", err)
	}
	if _, _, err := svc.Append(context.Background(), uuid.New(), 100, "contribution", "  "); err != ErrMissingSourceEvent {
		t.Fatalf("expected ErrMissingSourceEvent for blank key, got %v", err)
	}
}

func TestAppendStartsInCliff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(&storeStub{}, nil, testSchedule, func() time.Time { return now })

	entry, duplicate, err := svc.Append(context.Background(), uuid.New(), 1100, "contribution", "pay_42")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if duplicate {
		t.Fatal("first append must not be a duplicate")
	}
	if entry.VestingStatus != StatusInCliff {
		t.Fatalf("new entries must start in cliff, got %s", entry.VestingStatus)
	}
	if !entry.EarnedAt.Equal(now) {
		t.Fatalf("expected earned_at %v, got %v", now, entry.EarnedAt)
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	store := &storeStub{}
	svc := NewService(store, nil, testSchedule, nil)
	userID := uuid.New()

	first, _, err := svc.Append(context.Background(), userID, 500, "contribution", "pay_7")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, duplicate, err := svc.Append(context.Background(), userID, 999, "contribution", "pay_7")
	if err != nil {
		t.Fatalf("replay must succeed, got %v", err)
	}
	if !duplicate {
		t.Fatal("replay must report duplicate")
	}
	if second.ID != first.ID || second.CreditsAmount != 500 {
		t.Fatal("replay must return the original entry unchanged")
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected a single stored entry, got %d", len(store.entries))
	}
}

func TestAppendPublishesInsertEvent(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	var seen []changefeed.Event
	if _, err := feed.Subscribe(FeedTopic, func(_ context.Context, ev changefeed.Event) {
		seen = append(seen, ev)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc := NewService(&storeStub{}, feed, testSchedule, nil)
	userID := uuid.New()

	if _, _, err := svc.Append(context.Background(), userID, 100, "quest_complete", "q_1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// Replay must not publish a second event.
	if _, _, err := svc.Append(context.Background(), userID, 100, "quest_complete", "q_1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("expected exactly one insert event, got %d", len(seen))
	}
	if seen[0].Type != changefeed.EventInsert {
		t.Fatalf("expected insert event, got %s", seen[0].Type)
	}
}

func TestSweepPublishesUpdatePerTransition(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	var updates int
	if _, err := feed.Subscribe(FeedTopic, func(_ context.Context, ev changefeed.Event) {
		if ev.Type == changefeed.EventUpdate {
			updates++
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	store := &storeStub{sweepResult: []*Entry{
		{ID: uuid.New(), VestingStatus: StatusVesting},
		{ID: uuid.New(), VestingStatus: StatusVested},
	}}
	svc := NewService(store, feed, testSchedule, nil)

	count, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 transitions, got %d", count)
	}
	if updates != 2 {
		t.Fatalf("expected 2 update events, got %d", updates)
	}
}

func TestAuditReportsConsistency(t *testing.T) {
	balance := &Balance{UnvestedTotal: 100, VestingTotal: 50}
	svc := NewService(&storeStub{balance: balance}, nil, testSchedule, nil)

	_, consistent, err := svc.Audit(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !consistent {
		t.Fatal("identical balances must report consistent")
	}
}
