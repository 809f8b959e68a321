package contribution

import (
	"time"

	"github.com/google/uuid"
)

type RecordRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3,alpha"`
	ProviderRef string  `json:"provider_ref" validate:"required,max=128"`
}

type ContributionResponse struct {
	ID             uuid.UUID `json:"id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	ProviderRef    string    `json:"provider_ref"`
	TierSlug       string    `json:"tier_slug,omitempty"`
	CreditsAwarded int64     `json:"credits_awarded"`
	Duplicate      bool      `json:"duplicate,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toResponse(c *Contribution, duplicate bool) ContributionResponse {
	return ContributionResponse{
		ID:             c.ID,
		Amount:         c.Amount,
		Currency:       c.Currency,
		ProviderRef:    c.ProviderRef,
		TierSlug:       c.TierSlug,
		CreditsAwarded: c.CreditsAwarded,
		Duplicate:      duplicate,
		CreatedAt:      c.CreatedAt,
	}
}
