package analytics

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

// Topics the listener mirrors into analytics_metrics
const (
	topicLedger        = "ledger_entries"
	topicCompletions   = "action_completions"
	topicReferrals     = "referrals"
	topicContributions = "contributions"
	topicTiers         = "tiers"
)

type catalogInvalidator interface {
	Invalidate()
}

// Listener tails the change stream and folds events into the reporting
// mirror. A write failure is logged and the event dropped; the mirror is
// advisory and must never block or fail the ledger path.
type Listener struct {
	repo    Repository
	feed    changefeed.Feed
	catalog catalogInvalidator

	mu      sync.Mutex
	cancels []changefeed.CancelFunc
	started bool
}

// NewListener creates the mirror listener. catalog may be nil.
func NewListener(repo Repository, feed changefeed.Feed, catalog catalogInvalidator) *Listener {
	return &Listener{repo: repo, feed: feed, catalog: catalog}
}

// Start subscribes to every mirrored topic. Call Close to tear down.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}

	subs := map[string]changefeed.Handler{
		topicLedger:        l.onLedgerEntry,
		topicCompletions:   l.onCompletion,
		topicReferrals:     l.onReferral,
		topicContributions: l.onContribution,
		topicTiers:         l.onTierChange,
	}
	for topic, h := range subs {
		cancel, err := l.feed.Subscribe(topic, h)
		if err != nil {
			for _, c := range l.cancels {
				c()
			}
			l.cancels = nil
			return err
		}
		l.cancels = append(l.cancels, cancel)
	}
	l.started = true
	log.Info().Int("topics", len(subs)).Msg("analytics listener started")
	return nil
}

// Close tears down every subscription. Safe to call more than once.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.cancels {
		c()
	}
	l.cancels = nil
	l.started = false
}

func (l *Listener) onLedgerEntry(ctx context.Context, ev changefeed.Event) {
	var row struct {
		UserID        uuid.UUID `json:"user_id"`
		CreditsAmount int64     `json:"credits_amount"`
		SourceEvent   string    `json:"source_event"`
		VestingStatus string    `json:"vesting_status"`
	}
	if err := json.Unmarshal(ev.New, &row); err != nil {
		log.Warn().Err(err).Msg("analytics: bad ledger event payload")
		return
	}

	name := "credits_issued"
	if ev.Type == changefeed.EventUpdate {
		name = "vesting_transition"
	}
	l.record(ctx, name, float64(row.CreditsAmount), row.UserID, map[string]string{
		"source_event":   row.SourceEvent,
		"vesting_status": row.VestingStatus,
	})
}

func (l *Listener) onCompletion(ctx context.Context, ev changefeed.Event) {
	var row struct {
		UserID     uuid.UUID `json:"user_id"`
		ActionSlug string    `json:"action_slug"`
	}
	if err := json.Unmarshal(ev.New, &row); err != nil {
		log.Warn().Err(err).Msg("analytics: bad completion event payload")
		return
	}
	l.record(ctx, "action_completed", 1, row.UserID, map[string]string{
		"action_slug": row.ActionSlug,
	})
}

func (l *Listener) onReferral(ctx context.Context, ev changefeed.Event) {
	var row struct {
		ReferrerID uuid.UUID `json:"referrer_id"`
		Status     string    `json:"status"`
	}
	if err := json.Unmarshal(ev.New, &row); err != nil {
		log.Warn().Err(err).Msg("analytics: bad referral event payload")
		return
	}
	l.record(ctx, "referral_attributed", 1, row.ReferrerID, map[string]string{
		"status": row.Status,
	})
}

func (l *Listener) onContribution(ctx context.Context, ev changefeed.Event) {
	var row struct {
		UserID   uuid.UUID `json:"user_id"`
		Amount   float64   `json:"amount"`
		Currency string    `json:"currency"`
		TierSlug string    `json:"tier_slug"`
	}
	if err := json.Unmarshal(ev.New, &row); err != nil {
		log.Warn().Err(err).Msg("analytics: bad contribution event payload")
		return
	}
	l.record(ctx, "contribution_recorded", row.Amount, row.UserID, map[string]string{
		"currency":  row.Currency,
		"tier_slug": row.TierSlug,
	})
}

// onTierChange only busts the tier snapshot. Tier edits happen out of band
// (migrations, ops tooling) and announce themselves on the feed.
func (l *Listener) onTierChange(_ context.Context, _ changefeed.Event) {
	if l.catalog != nil {
		l.catalog.Invalidate()
	}
}

func (l *Listener) record(ctx context.Context, name string, value float64, userID uuid.UUID, dims map[string]string) {
	m := &Metric{
		MetricName:  name,
		MetricValue: value,
		UserID:      uuid.NullUUID{UUID: userID, Valid: userID != uuid.Nil},
	}
	if err := m.SetDimensions(dims); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("analytics: failed to encode dimensions")
		return
	}
	if err := l.repo.Insert(ctx, m); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("analytics: failed to record metric")
	}
}
