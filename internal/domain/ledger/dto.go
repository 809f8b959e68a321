package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryResponse is the public ledger entry representation
type EntryResponse struct {
	ID            uuid.UUID `json:"id"`
	CreditsAmount int64     `json:"credits_amount"`
	SourceEvent   string    `json:"source_event"`
	VestingStatus Status    `json:"vesting_status"`
	EarnedAt      time.Time `json:"earned_at"`
}

// BalanceResponse is the public balance representation
type BalanceResponse struct {
	UnvestedTotal  int64 `json:"unvested_total"`
	VestingTotal   int64 `json:"vesting_total"`
	VestedTotal    int64 `json:"vested_total"`
	ForfeitedTotal int64 `json:"forfeited_total"`
}

func toEntryResponse(e *Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		CreditsAmount: e.CreditsAmount,
		SourceEvent:   e.SourceEvent,
		VestingStatus: e.VestingStatus,
		EarnedAt:      e.EarnedAt,
	}
}

func toBalanceResponse(b *Balance) BalanceResponse {
	return BalanceResponse{
		UnvestedTotal:  b.UnvestedTotal,
		VestingTotal:   b.VestingTotal,
		VestedTotal:    b.VestedTotal,
		ForfeitedTotal: b.ForfeitedTotal,
	}
}
