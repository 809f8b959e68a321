package analytics

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

type metricsRepoStub struct {
	metrics []*Metric
}

func (r *metricsRepoStub) Insert(_ context.Context, m *Metric) error {
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *metricsRepoStub) SummaryByUser(context.Context, uuid.UUID) ([]*MetricSummary, error) {
	return nil, nil
}

func (r *metricsRepoStub) ListRecent(context.Context, string, int) ([]*Metric, error) {
	return nil, nil
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate() { s.calls++ }

type ledgerRow struct {
	UserID        uuid.UUID `json:"user_id"`
	CreditsAmount int64     `json:"credits_amount"`
	SourceEvent   string    `json:"source_event"`
	VestingStatus string    `json:"vesting_status"`
}

func TestListenerMirrorsLedgerInserts(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	repo := &metricsRepoStub{}
	l := NewListener(repo, feed, nil)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Close()

	userID := uuid.New()
	ev := changefeed.NewEvent("ledger_entries", changefeed.EventInsert, ledgerRow{
		UserID:        userID,
		CreditsAmount: 1100,
		SourceEvent:   "contribution",
		VestingStatus: "in_cliff",
	}, nil)
	if err := feed.Publish(context.Background(), topicLedger, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(repo.metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(repo.metrics))
	}
	m := repo.metrics[0]
	if m.MetricName != "credits_issued" {
		t.Fatalf("expected credits_issued, got %s", m.MetricName)
	}
	if m.MetricValue != 1100 {
		t.Fatalf("expected value 1100, got %v", m.MetricValue)
	}
	if !m.UserID.Valid || m.UserID.UUID != userID {
		t.Fatal("metric must carry the user id")
	}
	dims, err := m.Dimensions()
	if err != nil {
		t.Fatalf("dimensions: %v", err)
	}
	if dims["source_event"] != "contribution" || dims["vesting_status"] != "in_cliff" {
		t.Fatalf("unexpected dimensions: %v", dims)
	}
}

func TestListenerRecordsVestingTransitions(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	repo := &metricsRepoStub{}
	l := NewListener(repo, feed, nil)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Close()

	ev := changefeed.NewEvent("ledger_entries", changefeed.EventUpdate, ledgerRow{
		UserID:        uuid.New(),
		CreditsAmount: 500,
		VestingStatus: "vesting",
	}, nil)
	if err := feed.Publish(context.Background(), topicLedger, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(repo.metrics) != 1 || repo.metrics[0].MetricName != "vesting_transition" {
		t.Fatalf("expected a vesting_transition metric, got %+v", repo.metrics)
	}
}

func TestListenerTierEventBustsCatalog(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	inv := &invalidatorStub{}
	l := NewListener(&metricsRepoStub{}, feed, inv)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Close()

	ev := changefeed.NewEvent("support_tiers", changefeed.EventUpdate, nil, nil)
	if err := feed.Publish(context.Background(), topicTiers, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if inv.calls != 1 {
		t.Fatalf("expected one catalog invalidation, got %d", inv.calls)
	}
}

func TestListenerIgnoresMalformedPayloads(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	repo := &metricsRepoStub{}
	l := NewListener(repo, feed, nil)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Close()

	ev := changefeed.Event{Table: "ledger_entries", Type: changefeed.EventInsert, New: []byte("{not json")}
	if err := feed.Publish(context.Background(), topicLedger, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.metrics) != 0 {
		t.Fatalf("malformed events must be dropped, got %d metrics", len(repo.metrics))
	}
}

func TestListenerCloseStopsDelivery(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	repo := &metricsRepoStub{}
	l := NewListener(repo, feed, nil)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.Close()

	ev := changefeed.NewEvent("contributions", changefeed.EventInsert, map[string]any{"amount": 10}, nil)
	if err := feed.Publish(context.Background(), topicContributions, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.metrics) != 0 {
		t.Fatalf("closed listener must not record, got %d metrics", len(repo.metrics))
	}
}
