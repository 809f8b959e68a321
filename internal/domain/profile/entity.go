package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the reward-facing view of a user. Identity and auth live in
// a separate service; this table mirrors the fields the reward engine needs.
type Profile struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	Role             string        `db:"role" json:"role"`
	ReferralCode     string        `db:"referral_code" json:"referral_code"`
	ReferrerID       uuid.NullUUID `db:"referrer_id" json:"referrer_id,omitempty"`
	Locale           string        `db:"locale" json:"locale"`
	GenesisQuestSlug string        `db:"genesis_quest_slug" json:"genesis_quest_slug,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}
