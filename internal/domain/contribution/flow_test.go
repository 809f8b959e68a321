package contribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/domain/profile"
	"github.com/crowdpad/rewards-api/internal/domain/referral"
	"github.com/crowdpad/rewards-api/internal/domain/reward"
	"github.com/crowdpad/rewards-api/internal/domain/tier"
)

// In-memory ledger store mirroring the repository's append/balance contract.
type ledgerStoreMem struct {
	entries  []*ledger.Entry
	balances map[uuid.UUID]*ledger.Balance
}

func newLedgerStoreMem() *ledgerStoreMem {
	return &ledgerStoreMem{balances: map[uuid.UUID]*ledger.Balance{}}
}

func (s *ledgerStoreMem) balance(userID uuid.UUID) *ledger.Balance {
	b, ok := s.balances[userID]
	if !ok {
		b = &ledger.Balance{UserID: userID}
		s.balances[userID] = b
	}
	return b
}

func (s *ledgerStoreMem) Append(_ context.Context, e *ledger.Entry) (*ledger.Entry, bool, error) {
	for _, prior := range s.entries {
		if prior.UserID == e.UserID && prior.SourceEvent == e.SourceEvent && prior.SourceEventID == e.SourceEventID {
			return prior, true, nil
		}
	}
	s.entries = append(s.entries, e)
	s.balance(e.UserID).UnvestedTotal += e.CreditsAmount
	return e, false, nil
}

func (s *ledgerStoreMem) GetBySourceEvent(_ context.Context, userID uuid.UUID, sourceEvent, sourceEventID string) (*ledger.Entry, error) {
	for _, e := range s.entries {
		if e.UserID == userID && e.SourceEvent == sourceEvent && e.SourceEventID == sourceEventID {
			return e, nil
		}
	}
	return nil, nil
}

func (s *ledgerStoreMem) GetBalance(_ context.Context, userID uuid.UUID) (*ledger.Balance, error) {
	return s.balance(userID), nil
}

func (s *ledgerStoreMem) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ledgerStoreMem) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	list, _ := s.ListByUser(context.Background(), userID, 0, 0)
	return len(list), nil
}

func (s *ledgerStoreMem) SweepDue(context.Context, ledger.Schedule, time.Time, int) ([]*ledger.Entry, error) {
	return nil, nil
}

func (s *ledgerStoreMem) Forfeit(context.Context, uuid.UUID) (int, int64, error) {
	return 0, 0, nil
}

func (s *ledgerStoreMem) Recompute(_ context.Context, userID uuid.UUID) (*ledger.Balance, error) {
	return s.balance(userID), nil
}

type tierRepoFixed struct{}

func (tierRepoFixed) ListActive(context.Context) ([]*tier.Tier, error) {
	return []*tier.Tier{
		{ID: uuid.New(), Slug: "bronze", MinAmount: 5, CreditMultiplier: 1.0, IsActive: true},
		{ID: uuid.New(), Slug: "silver", MinAmount: 50, CreditMultiplier: 1.1, IsActive: true},
		{ID: uuid.New(), Slug: "gold", MinAmount: 200, CreditMultiplier: 1.25, IsActive: true},
	}, nil
}

func (tierRepoFixed) GetByID(context.Context, uuid.UUID) (*tier.Tier, error) { return nil, nil }

type actionRepoFixed struct{}

func (actionRepoFixed) ListActiveActions(context.Context) ([]*reward.ActionDefinition, error) {
	return []*reward.ActionDefinition{
		{Slug: reward.ActionContribution, Name: "Contribution", IsAmountBased: true, IsActive: true},
		{Slug: reward.ActionReferralBonus, Name: "Referral bonus", BasePoints: 250, IsActive: true},
	}, nil
}

func (actionRepoFixed) InsertCompletion(context.Context, *reward.Completion) (bool, error) {
	return false, nil
}

func (actionRepoFixed) ListCompletions(context.Context, uuid.UUID, int, int) ([]*reward.Completion, error) {
	return nil, nil
}

type referralRepoMem struct {
	rows map[uuid.UUID]*referral.Referral
}

func (r *referralRepoMem) Insert(_ context.Context, ref *referral.Referral) error {
	if r.rows == nil {
		r.rows = map[uuid.UUID]*referral.Referral{}
	}
	if _, exists := r.rows[ref.ReferredID]; exists {
		return referral.ErrAlreadyAttributed
	}
	ref.ID = uuid.New()
	r.rows[ref.ReferredID] = ref
	return nil
}

func (r *referralRepoMem) MarkCredited(context.Context, uuid.UUID) error { return nil }

func (r *referralRepoMem) GetByReferred(_ context.Context, referredID uuid.UUID) (*referral.Referral, error) {
	return r.rows[referredID], nil
}

func (r *referralRepoMem) ListByReferrer(context.Context, uuid.UUID, int, int) ([]*referral.Referral, error) {
	return nil, nil
}

func (r *referralRepoMem) CountByReferrer(context.Context, uuid.UUID) (int, error) { return 0, nil }

type profileDirectory struct {
	byCode map[string]*profile.Profile
}

func (d *profileDirectory) GetByReferralCode(_ context.Context, code string) (*profile.Profile, error) {
	return d.byCode[code], nil
}

func (d *profileDirectory) SetReferrer(context.Context, uuid.UUID, uuid.UUID) error { return nil }

// The whole issuance path wired together: a signup attributed to a referrer,
// then a contribution, both flowing through the real engine into the real
// ledger service.
func TestContributionAndReferralFlow(t *testing.T) {
	store := newLedgerStoreMem()
	ledgerSvc := ledger.NewService(store, nil, ledger.Schedule{
		Cliff:    30 * 24 * time.Hour,
		Duration: 180 * 24 * time.Hour,
	}, nil)
	catalog := tier.NewCatalog(tierRepoFixed{}, time.Hour, nil)
	registry := reward.NewRegistry(actionRepoFixed{}, time.Hour, nil)
	engine := reward.NewEngine(registry, catalog, ledgerSvc, nil, 10)

	referrer := &profile.Profile{ID: uuid.New(), Role: "backer", ReferralCode: "ALICE1"}
	referralSvc := referral.NewService(&referralRepoMem{}, &profileDirectory{
		byCode: map[string]*profile.Profile{referrer.ReferralCode: referrer},
	}, engine, nil, nil)
	contribSvc := NewService(newContribRepoStub(), engine, nil)

	ctx := context.Background()
	referred := uuid.New()

	// Signup with the referrer's code pays the flat bonus to the referrer.
	attribution, err := referralSvc.Attribute(ctx, referred, "ALICE1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if attribution.CreditsAwarded != 250 {
		t.Fatalf("expected 250 bonus credits, got %d", attribution.CreditsAwarded)
	}
	referrerBalance, err := ledgerSvc.GetBalance(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if referrerBalance.UnvestedTotal != 250 {
		t.Fatalf("expected referrer unvested 250, got %d", referrerBalance.UnvestedTotal)
	}

	// The referred user contributes 100 EUR: silver tier, 100 * 10 * 1.1.
	c, duplicate, err := contribSvc.Record(ctx, referred, RecordInput{
		Amount:      100,
		Currency:    "eur",
		ProviderRef: "pay_777",
		Role:        "backer",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if duplicate {
		t.Fatal("first contribution must not be a duplicate")
	}
	if c.CreditsAwarded != 1100 {
		t.Fatalf("expected 1100 credits, got %d", c.CreditsAwarded)
	}
	if c.TierSlug != "silver" {
		t.Fatalf("expected silver tier, got %q", c.TierSlug)
	}

	entries, _, err := ledgerSvc.ListEntries(ctx, referred, 50, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry for the referred user, got %d", len(entries))
	}
	if entries[0].VestingStatus != ledger.StatusInCliff {
		t.Fatalf("fresh credits must start in cliff, got %s", entries[0].VestingStatus)
	}
	if entries[0].SourceEvent != reward.ActionContribution {
		t.Fatalf("entry must carry the action slug, got %q", entries[0].SourceEvent)
	}

	// A provider retry settles into the existing rows and moves no credits.
	replay, duplicate, err := contribSvc.Record(ctx, referred, RecordInput{
		Amount:      100,
		Currency:    "eur",
		ProviderRef: "pay_777",
		Role:        "backer",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !duplicate {
		t.Fatal("replay must be reported as a duplicate")
	}
	if replay.ID != c.ID {
		t.Fatal("replay must return the original contribution")
	}
	balance, err := ledgerSvc.GetBalance(ctx, referred)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if balance.UnvestedTotal != 1100 {
		t.Fatalf("replay must not move credits, unvested is %d", balance.UnvestedTotal)
	}
}
