package contribution

import (
	"time"

	"github.com/google/uuid"
)

// Contribution is one settled backing payment. ProviderRef is the payment
// provider's reference and doubles as the idempotency key: webhooks replay,
// rows do not.
type Contribution struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	UserID         uuid.UUID     `db:"user_id" json:"user_id"`
	Amount         float64       `db:"amount" json:"amount"`
	Currency       string        `db:"currency" json:"currency"`
	ProviderRef    string        `db:"provider_ref" json:"provider_ref"`
	TierSlug       string        `db:"tier_slug" json:"tier_slug,omitempty"`
	CreditsAwarded int64         `db:"credits_awarded" json:"credits_awarded"`
	LedgerEntryID  uuid.NullUUID `db:"ledger_entry_id" json:"ledger_entry_id,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
