package reward

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/domain/tier"
)

// ledgerAppender is the slice of the ledger service the engine needs
type ledgerAppender interface {
	Append(ctx context.Context, userID uuid.UUID, credits int64, sourceEvent, sourceEventID string) (*ledger.Entry, bool, error)
}

// tierResolver resolves a contribution amount to a tier snapshot
type tierResolver interface {
	Resolve(ctx context.Context, amount float64) (*tier.Tier, bool, error)
}

// notifier delivers user-facing messages. Best-effort: implementations log
// their own failures, the engine never rolls back credit over one.
type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, body string, metadata map[string]interface{})
}

// ExecInput carries the triggering event's context into Execute
type ExecInput struct {
	// Amount of the contribution, in currency units. Ignored for flat
	// actions.
	Amount float64

	// SourceEventID is the stable idempotency key derived from the
	// triggering event: contribution id, quest-completion id, referred
	// user id.
	SourceEventID string

	// Role of the acting user, from the external authorization source.
	Role string
}

// ExecResult reports one issuance
type ExecResult struct {
	CreditsAwarded int64     `json:"credits_awarded"`
	LedgerEntryID  uuid.UUID `json:"ledger_entry_id"`
	Duplicate      bool      `json:"duplicate"`
	TierSlug       string    `json:"tier_slug,omitempty"`
}

// Engine converts a named action plus context into exactly one ledger entry
// per triggering event. Concurrency safety is the ledger's uniqueness
// constraint; the engine holds no locks.
type Engine struct {
	registry *Registry
	tiers    tierResolver
	ledger   ledgerAppender
	notifier notifier
	baseRate float64
}

// NewEngine creates the credit issuance engine. notifier may be nil.
func NewEngine(registry *Registry, tiers tierResolver, ledgerSvc ledgerAppender, n notifier, baseRate float64) *Engine {
	return &Engine{
		registry: registry,
		tiers:    tiers,
		ledger:   ledgerSvc,
		notifier: n,
		baseRate: baseRate,
	}
}

// Execute runs one gamification action for a user. Invoking it again with
// the same SourceEventID returns the prior result as a success: exactly-once
// effect under at-least-once invocation.
func (e *Engine) Execute(ctx context.Context, userID uuid.UUID, slug string, in ExecInput) (*ExecResult, error) {
	def, err := e.registry.Lookup(ctx, slug)
	if err != nil {
		return nil, err
	}

	if !def.Allows(in.Role) {
		return nil, ErrActionNotAllowed
	}

	if strings.TrimSpace(in.SourceEventID) == "" {
		return nil, ErrMissingReference
	}

	var credits int64
	var tierSlug string
	if def.IsAmountBased {
		if in.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		multiplier := 1.0
		if t, ok, err := e.tiers.Resolve(ctx, in.Amount); err != nil {
			return nil, err
		} else if ok {
			multiplier = t.CreditMultiplier
			tierSlug = t.Slug
		}
		credits = int64(math.Floor(in.Amount * e.baseRate * multiplier))
	} else {
		credits = def.BasePoints
	}
	if credits <= 0 {
		return nil, ErrInvalidAmount
	}

	entry, duplicate, err := e.ledger.Append(ctx, userID, credits, slug, in.SourceEventID)
	if err != nil {
		return nil, err
	}

	result := &ExecResult{
		CreditsAwarded: entry.CreditsAmount,
		LedgerEntryID:  entry.ID,
		Duplicate:      duplicate,
		TierSlug:       tierSlug,
	}

	if !duplicate {
		e.notifyIssued(ctx, userID, def, result)
	}

	return result, nil
}

func (e *Engine) notifyIssued(ctx context.Context, userID uuid.UUID, def *ActionDefinition, result *ExecResult) {
	if e.notifier == nil {
		return
	}
	metadata := map[string]interface{}{
		"action":          def.Slug,
		"credits":         result.CreditsAwarded,
		"ledger_entry_id": result.LedgerEntryID.String(),
	}
	if result.TierSlug != "" {
		metadata["tier"] = result.TierSlug
	}
	e.notifier.Notify(ctx, userID, "credits_issued", "Credits issued", def.Name, metadata)
	log.Debug().
		Str("user_id", userID.String()).
		Str("action", def.Slug).
		Int64("credits", result.CreditsAwarded).
		Msg("issuance notification queued")
}
