package referral

import (
	"time"

	"github.com/google/uuid"
)

type AttributeRequest struct {
	Code string `json:"code" validate:"required,referral_code"`
}

type ReferralResponse struct {
	ID         uuid.UUID  `json:"id"`
	ReferredID uuid.UUID  `json:"referred_id"`
	Status     string     `json:"status"`
	CreditedAt *time.Time `json:"credited_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toResponse(ref *Referral) ReferralResponse {
	resp := ReferralResponse{
		ID:         ref.ID,
		ReferredID: ref.ReferredID,
		Status:     ref.Status,
		CreatedAt:  ref.CreatedAt,
	}
	if ref.CreditedAt.Valid {
		t := ref.CreditedAt.Time
		resp.CreditedAt = &t
	}
	return resp
}
