package contribution

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/domain/reward"
	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

// FeedTopic is the change stream carrying settled contributions
const FeedTopic = "contributions"

type rewardExecutor interface {
	Execute(ctx context.Context, userID uuid.UUID, slug string, in reward.ExecInput) (*reward.ExecResult, error)
}

// Service records settled payments and turns them into vesting credits
type Service struct {
	repo   Repository
	engine rewardExecutor
	feed   changefeed.Feed
}

// NewService creates contribution service. feed may be nil.
func NewService(repo Repository, engine rewardExecutor, feed changefeed.Feed) *Service {
	return &Service{repo: repo, engine: engine, feed: feed}
}

// RecordInput is one settled payment as reported by the provider
type RecordInput struct {
	Amount      float64
	Currency    string
	ProviderRef string
	Role        string
}

// Record books the contribution and issues its credits. ProviderRef keys
// both the contribution row and the ledger entry, so provider retries
// settle into the rows written first time around.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, in RecordInput) (*Contribution, bool, error) {
	if in.Amount <= 0 {
		return nil, false, ErrInvalidAmount
	}
	if strings.TrimSpace(in.ProviderRef) == "" {
		return nil, false, reward.ErrMissingReference
	}

	result, err := s.engine.Execute(ctx, userID, reward.ActionContribution, reward.ExecInput{
		Amount:        in.Amount,
		SourceEventID: in.ProviderRef,
		Role:          in.Role,
	})
	if err != nil {
		return nil, false, err
	}

	c := &Contribution{
		UserID:         userID,
		Amount:         in.Amount,
		Currency:       strings.ToUpper(in.Currency),
		ProviderRef:    in.ProviderRef,
		TierSlug:       result.TierSlug,
		CreditsAwarded: result.CreditsAwarded,
		LedgerEntryID:  uuid.NullUUID{UUID: result.LedgerEntryID, Valid: true},
	}

	stored, duplicate, err := s.repo.Insert(ctx, c)
	if err != nil {
		return nil, false, err
	}

	if duplicate {
		log.Debug().
			Str("user_id", userID.String()).
			Str("provider_ref", in.ProviderRef).
			Msg("contribution replay collapsed into existing row")
		return stored, true, nil
	}

	log.Info().
		Str("user_id", userID.String()).
		Float64("amount", in.Amount).
		Str("tier", stored.TierSlug).
		Int64("credits", stored.CreditsAwarded).
		Msg("contribution recorded")

	s.publish(ctx, stored)

	return stored, false, nil
}

// ListMine returns the caller's contribution history
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Contribution, int, error) {
	list, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Service) publish(ctx context.Context, c *Contribution) {
	if s.feed == nil {
		return
	}
	ev := changefeed.NewEvent("contributions", changefeed.EventInsert, c, nil)
	if err := s.feed.Publish(ctx, FeedTopic, ev); err != nil {
		log.Warn().Err(err).Msg("failed to publish contribution event")
	}
}
