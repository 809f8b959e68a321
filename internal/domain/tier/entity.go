package tier

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tier represents a contribution bracket. Tiers are immutable once
// published; threshold changes create a new tier row so historical ledger
// entries keep the classification they were issued under.
type Tier struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	Slug             string        `db:"slug" json:"slug"`
	Name             string        `db:"name" json:"name"`
	MinAmount        float64       `db:"min_amount" json:"min_amount"`
	CreditMultiplier float64       `db:"credit_multiplier" json:"credit_multiplier"`
	RewardBase       sql.NullInt64 `db:"reward_credits_base" json:"reward_credits_base,omitempty"`
	IsActive         bool          `db:"is_active" json:"is_active"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`

	// Raw JSONB column as stored
	BenefitsRaw []byte `db:"benefits" json:"-"`

	// Parsed benefits, populated after scanning
	Benefits []string `db:"-" json:"benefits"`
}

// ParseJSONB parses the raw benefits column. Must be called after DB scan.
func (t *Tier) ParseJSONB() {
	if len(t.BenefitsRaw) > 0 {
		_ = json.Unmarshal(t.BenefitsRaw, &t.Benefits)
	}
}
