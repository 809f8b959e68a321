package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the vesting state of a credit grant
type Status string

const (
	StatusInCliff   Status = "in_cliff"
	StatusVesting   Status = "vesting"
	StatusVested    Status = "vested"
	StatusForfeited Status = "forfeited"
)

// Terminal reports whether no further transition can happen
func (s Status) Terminal() bool {
	return s == StatusVested || s == StatusForfeited
}

// rank orders the forward vesting progression. Forfeited sits outside the
// progression and is handled explicitly.
func rank(s Status) int {
	switch s {
	case StatusInCliff:
		return 0
	case StatusVesting:
		return 1
	case StatusVested:
		return 2
	}
	return -1
}

// Entry is one immutable credit grant. Entries are append-only: amounts are
// never edited after creation, corrections are new compensating entries.
// SourceEventID is the idempotency key, unique per (user, source event).
type Entry struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	CreditsAmount int64     `db:"credits_amount" json:"credits_amount"`
	SourceEvent   string    `db:"source_event" json:"source_event"`
	SourceEventID string    `db:"source_event_id" json:"source_event_id"`
	VestingStatus Status    `db:"vesting_status" json:"vesting_status"`
	EarnedAt      time.Time `db:"earned_at" json:"earned_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Balance is the materialized per-user aggregate, maintained transactionally
// alongside every entry insert and state transition. It is never recomputed
// by scanning the ledger on the hot path; Recompute exists for audits.
type Balance struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	UnvestedTotal  int64     `db:"unvested_total" json:"unvested_total"`
	VestingTotal   int64     `db:"vesting_total" json:"vesting_total"`
	VestedTotal    int64     `db:"vested_total" json:"vested_total"`
	ForfeitedTotal int64     `db:"forfeited_total" json:"forfeited_total"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// bucket returns the balance column holding amounts in the given state
func bucket(s Status) string {
	switch s {
	case StatusInCliff:
		return "unvested_total"
	case StatusVesting:
		return "vesting_total"
	case StatusVested:
		return "vested_total"
	case StatusForfeited:
		return "forfeited_total"
	}
	return ""
}
