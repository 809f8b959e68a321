package tier

import "github.com/google/uuid"

// TierResponse is the public tier representation
type TierResponse struct {
	ID               uuid.UUID `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	MinAmount        float64   `json:"min_amount"`
	CreditMultiplier float64   `json:"credit_multiplier"`
	Benefits         []string  `json:"benefits"`
}

// ToResponse converts a tier to its public representation
func ToResponse(t *Tier) TierResponse {
	benefits := t.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	return TierResponse{
		ID:               t.ID,
		Slug:             t.Slug,
		Name:             t.Name,
		MinAmount:        t.MinAmount,
		CreditMultiplier: t.CreditMultiplier,
		Benefits:         benefits,
	}
}
