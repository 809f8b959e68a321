package reward

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

// CompletionsTopic is the change stream carrying action-completion history
const CompletionsTopic = "action_completions"

// Service records action completions and drives the issuance engine
type Service struct {
	repo   Repository
	engine *Engine
	feed   changefeed.Feed
	now    func() time.Time
}

// NewService creates reward service. feed may be nil; now may be nil for the
// wall clock.
func NewService(repo Repository, engine *Engine, feed changefeed.Feed, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, engine: engine, feed: feed, now: now}
}

// Engine exposes the issuance engine for callers that trigger actions
// directly (contribution intake, referral attribution).
func (s *Service) Engine() *Engine {
	return s.engine
}

// ListActions returns the active action definitions
func (s *Service) ListActions(ctx context.Context) ([]*ActionDefinition, error) {
	return s.engine.registry.List(ctx)
}

// ListCompletions returns a user's completion history
func (s *Service) ListCompletions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Completion, error) {
	return s.repo.ListCompletions(ctx, userID, limit, offset)
}

// CompleteAction records a flat action completion (quest, genesis) and
// issues its credits. referenceID is the completion's idempotency key; a
// replayed completion re-issues nothing.
func (s *Service) CompleteAction(ctx context.Context, userID uuid.UUID, role, slug, referenceID string) (*ExecResult, error) {
	result, err := s.engine.Execute(ctx, userID, slug, ExecInput{
		SourceEventID: referenceID,
		Role:          role,
	})
	if err != nil {
		return nil, err
	}

	completion := &Completion{
		ID:             uuid.New(),
		UserID:         userID,
		ActionSlug:     slug,
		ReferenceID:    referenceID,
		CreditsAwarded: result.CreditsAwarded,
		CompletedAt:    s.now(),
	}
	duplicate, err := s.repo.InsertCompletion(ctx, completion)
	if err != nil {
		// The credit is already safely idempotent in the ledger; history
		// is best-effort and a replay will record it.
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("action", slug).
			Msg("completion history insert failed")
		return result, nil
	}

	if !duplicate {
		s.publish(completion)
	}
	return result, nil
}

func (s *Service) publish(c *Completion) {
	if s.feed == nil {
		return
	}
	ev := changefeed.NewEvent(CompletionsTopic, changefeed.EventInsert, c, nil)
	if err := s.feed.Publish(context.Background(), CompletionsTopic, ev); err != nil {
		log.Warn().Err(err).Str("completion_id", c.ID.String()).Msg("completion change publish failed")
	}
}
