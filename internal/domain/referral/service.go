package referral

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/domain/profile"
	"github.com/crowdpad/rewards-api/internal/domain/reward"
	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
)

// FeedTopic is the change stream carrying referral attributions
const FeedTopic = "referrals"

type profileReader interface {
	GetByReferralCode(ctx context.Context, code string) (*profile.Profile, error)
	SetReferrer(ctx context.Context, userID, referrerID uuid.UUID) error
}

type rewardExecutor interface {
	Execute(ctx context.Context, userID uuid.UUID, slug string, in reward.ExecInput) (*reward.ExecResult, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, body string, metadata map[string]interface{})
}

// Service attributes new signups to their referrers and pays the bonus
type Service struct {
	repo     Repository
	profiles profileReader
	engine   rewardExecutor
	feed     changefeed.Feed
	notifier notifier
}

// NewService creates referral service. feed and notifier may be nil.
func NewService(repo Repository, profiles profileReader, engine rewardExecutor, feed changefeed.Feed, n notifier) *Service {
	return &Service{repo: repo, profiles: profiles, engine: engine, feed: feed, notifier: n}
}

// AttributeResult reports what one attribution did
type AttributeResult struct {
	Referral       *Referral `json:"referral,omitempty"`
	SelfReferral   bool      `json:"self_referral,omitempty"`
	CreditsAwarded int64     `json:"credits_awarded"`
}

// Attribute links referredID to the owner of code and issues the referral
// bonus to the referrer. A user can be attributed at most once; the bonus is
// keyed by the referred user, so retries never double-pay.
func (s *Service) Attribute(ctx context.Context, referredID uuid.UUID, code string) (*AttributeResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrUnknownCode
	}

	referrer, err := s.profiles.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrUnknownCode
	}

	// Using your own code does nothing, successfully.
	if referrer.ID == referredID {
		log.Debug().
			Str("user_id", referredID.String()).
			Msg("self referral ignored")
		return &AttributeResult{SelfReferral: true}, nil
	}

	ref := &Referral{
		ReferrerID: referrer.ID,
		ReferredID: referredID,
		Code:       code,
		Status:     StatusPending,
	}
	if err := s.repo.Insert(ctx, ref); err != nil {
		if !errors.Is(err, ErrAlreadyAttributed) {
			return nil, err
		}
		// A replay of the same attribution is not a failure. Only a
		// competing referrer gets the conflict.
		existing, getErr := s.repo.GetByReferred(ctx, referredID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil || existing.ReferrerID != referrer.ID {
			return nil, ErrAlreadyAttributed
		}
		log.Debug().
			Str("referrer_id", referrer.ID.String()).
			Str("referred_id", referredID.String()).
			Msg("attribution replayed")
		return &AttributeResult{Referral: existing}, nil
	}

	// Back-link is convenience denormalization; attribution stands even
	// when it fails.
	if err := s.profiles.SetReferrer(ctx, referredID, referrer.ID); err != nil {
		log.Warn().Err(err).
			Str("referred_id", referredID.String()).
			Msg("failed to back-link referrer on profile")
	}

	result, err := s.engine.Execute(ctx, referrer.ID, reward.ActionReferralBonus, reward.ExecInput{
		SourceEventID: referredID.String(),
		Role:          referrer.Role,
	})
	if err != nil {
		// The attribution row survives; the bonus can be replayed with
		// the same key once the ledger recovers.
		log.Error().Err(err).
			Str("referrer_id", referrer.ID.String()).
			Str("referred_id", referredID.String()).
			Msg("referral bonus issuance failed")
		return &AttributeResult{Referral: ref}, nil
	}

	if err := s.repo.MarkCredited(ctx, ref.ID); err != nil {
		log.Warn().Err(err).
			Str("referral_id", ref.ID.String()).
			Msg("failed to mark referral credited")
	} else {
		ref.Status = StatusCredited
	}

	log.Info().
		Str("referrer_id", referrer.ID.String()).
		Str("referred_id", referredID.String()).
		Int64("credits", result.CreditsAwarded).
		Msg("referral attributed")

	if s.notifier != nil && !result.Duplicate {
		s.notifier.Notify(ctx, referrer.ID, "referral_credited", "Referral bonus",
			"Someone joined with your code", map[string]interface{}{
				"referred_id": referredID.String(),
				"credits":     result.CreditsAwarded,
			})
	}

	s.publish(ctx, ref)

	return &AttributeResult{Referral: ref, CreditsAwarded: result.CreditsAwarded}, nil
}

// ListMine returns the attributions a referrer has accumulated
func (s *Service) ListMine(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	refs, err := s.repo.ListByReferrer(ctx, referrerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByReferrer(ctx, referrerID)
	if err != nil {
		return nil, 0, err
	}
	return refs, total, nil
}

func (s *Service) publish(ctx context.Context, ref *Referral) {
	if s.feed == nil {
		return
	}
	ev := changefeed.NewEvent("referrals", changefeed.EventInsert, ref, nil)
	if err := s.feed.Publish(ctx, FeedTopic, ev); err != nil {
		log.Warn().Err(err).Msg("failed to publish referral event")
	}
}
