package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

// FeedTopic is the change stream carrying ledger mutations
const FeedTopic = "ledger_entries"

// Service owns the vesting ledger lifecycle
type Service struct {
	store    Store
	feed     changefeed.Feed
	schedule Schedule
	now      func() time.Time
}

// NewService creates ledger service. feed may be nil; now may be nil for the
// wall clock.
func NewService(store Store, feed changefeed.Feed, schedule Schedule, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, feed: feed, schedule: schedule, now: now}
}

// Schedule returns the vesting timetable the service applies
func (s *Service) Schedule() Schedule {
	return s.schedule
}

// Append posts one credit grant. Re-posting the same (sourceEvent,
// sourceEventID) returns the previously persisted entry with duplicate=true,
// so at-least-once callers get exactly-once ledger effects.
func (s *Service) Append(ctx context.Context, userID uuid.UUID, credits int64, sourceEvent, sourceEventID string) (*Entry, bool, error) {
	if credits <= 0 {
		return nil, false, ErrInvalidAmount
	}
	if strings.TrimSpace(sourceEventID) == "" {
		return nil, false, ErrMissingSourceEvent
	}

	now := s.now()
	entry := &Entry{
		ID:            uuid.New(),
		UserID:        userID,
		CreditsAmount: credits,
		SourceEvent:   sourceEvent,
		SourceEventID: sourceEventID,
		VestingStatus: StatusInCliff,
		EarnedAt:      now,
		UpdatedAt:     now,
	}

	persisted, duplicate, err := s.store.Append(ctx, entry)
	if err != nil {
		return nil, false, err
	}

	if duplicate {
		log.Debug().
			Str("user_id", userID.String()).
			Str("source_event", sourceEvent).
			Str("source_event_id", sourceEventID).
			Msg("ledger append collapsed into existing entry")
		return persisted, true, nil
	}

	log.Info().
		Str("user_id", userID.String()).
		Int64("credits", credits).
		Str("source_event", sourceEvent).
		Str("source_event_id", sourceEventID).
		Msg("ledger entry appended")

	s.publish(changefeed.EventInsert, persisted, nil)
	return persisted, false, nil
}

// GetBalance returns the materialized balance for a user
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.store.GetBalance(ctx, userID)
}

// ListEntries returns a page of the user's ledger, newest first
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	entries, err := s.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Sweep advances every due vesting transition. Wall-time-driven; invoked by
// the scheduled worker, never by user action.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	transitioned, err := s.store.SweepDue(ctx, s.schedule, s.now(), 0)
	if err != nil {
		return 0, err
	}
	for _, e := range transitioned {
		s.publish(changefeed.EventUpdate, e, nil)
	}
	return len(transitioned), nil
}

// Forfeit cancels every open grant of a user, e.g. when their subscription
// is cancelled before vesting completes. Terminal.
func (s *Service) Forfeit(ctx context.Context, userID uuid.UUID, reason string) (int, int64, error) {
	entries, credits, err := s.store.Forfeit(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if entries > 0 {
		log.Info().
			Str("user_id", userID.String()).
			Int("entries", entries).
			Int64("credits", credits).
			Str("reason", reason).
			Msg("open credit grants forfeited")
	}
	return entries, credits, nil
}

// Audit recomputes the balance from the ledger and reports whether the
// materialized row matched before the repair.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID) (*Balance, bool, error) {
	before, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	after, err := s.store.Recompute(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	consistent := before.UnvestedTotal == after.UnvestedTotal &&
		before.VestingTotal == after.VestingTotal &&
		before.VestedTotal == after.VestedTotal &&
		before.ForfeitedTotal == after.ForfeitedTotal
	if !consistent {
		log.Warn().
			Str("user_id", userID.String()).
			Interface("before", before).
			Interface("after", after).
			Msg("balance reconciliation repaired a drifted row")
	}
	return after, consistent, nil
}

// publish emits a change event. Best-effort: the analytics mirror and the
// realtime UI eventually observe it, ledger correctness never depends on it.
func (s *Service) publish(eventType changefeed.EventType, entry *Entry, old *Entry) {
	if s.feed == nil {
		return
	}
	ev := changefeed.NewEvent(FeedTopic, eventType, entry, old)
	if err := s.feed.Publish(context.Background(), FeedTopic, ev); err != nil {
		log.Warn().Err(err).Str("entry_id", entry.ID.String()).Msg("ledger change publish failed")
	}
}
