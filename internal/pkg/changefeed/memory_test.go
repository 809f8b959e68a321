package changefeed

import (
	"context"
	"testing"
)

func TestMemoryFeedDeliversToMatchingTopic(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	var got []Event
	if _, err := f.Subscribe("ledger_entries", func(_ context.Context, ev Event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var other int
	if _, err := f.Subscribe("referrals", func(context.Context, Event) {
		other++
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev := NewEvent("ledger_entries", EventInsert, map[string]int{"credits_amount": 100}, nil)
	if err := f.Publish(context.Background(), "ledger_entries", ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Table != "ledger_entries" || got[0].Type != EventInsert {
		t.Fatalf("unexpected event: %+v", got[0])
	}
	if other != 0 {
		t.Fatalf("other topic must not receive, got %d", other)
	}
}

func TestMemoryFeedCancelStopsDelivery(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	var count int
	cancel, err := f.Subscribe("referrals", func(context.Context, Event) { count++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := f.Publish(context.Background(), "referrals", Event{Table: "referrals"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	cancel()
	cancel() // safe twice
	if err := f.Publish(context.Background(), "referrals", Event{Table: "referrals"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected 1 delivery before cancel, got %d", count)
	}
}

func TestMemoryFeedClosedRejectsUse(t *testing.T) {
	f := NewMemoryFeed()
	f.Close()

	if _, err := f.Subscribe("x", func(context.Context, Event) {}); err != ErrFeedClosed {
		t.Fatalf("expected ErrFeedClosed on subscribe, got %v", err)
	}
	if err := f.Publish(context.Background(), "x", Event{}); err != ErrFeedClosed {
		t.Fatalf("expected ErrFeedClosed on publish, got %v", err)
	}
}

func TestMemoryFeedRecoversFromHandlerPanic(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	if _, err := f.Subscribe("x", func(context.Context, Event) { panic("boom") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var delivered int
	if _, err := f.Subscribe("x", func(context.Context, Event) { delivered++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := f.Publish(context.Background(), "x", Event{}); err != nil {
		t.Fatalf("publish must survive a panicking handler: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("other handlers must still run, got %d", delivered)
	}
}
