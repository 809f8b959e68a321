package reward

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActionDefinition is one named gamification action. Definitions live in the
// reward_actions table and are loaded into the registry, so new actions are
// a data change, not a code change.
type ActionDefinition struct {
	Slug              string    `db:"slug" json:"slug"`
	Name              string    `db:"name" json:"name"`
	BasePoints        int64     `db:"base_points" json:"base_points"`
	IsAmountBased     bool      `db:"is_amount_based" json:"is_amount_based"`
	IsReferralTrigger bool      `db:"is_referral_trigger" json:"is_referral_trigger"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`

	// Raw JSONB column as stored
	AllowedRolesRaw []byte `db:"allowed_roles" json:"-"`

	// Parsed roles, populated after scanning. Empty means any role.
	AllowedRoles []string `db:"-" json:"allowed_roles"`
}

// ParseJSONB parses the raw allowed_roles column. Must be called after DB scan.
func (a *ActionDefinition) ParseJSONB() {
	if len(a.AllowedRolesRaw) > 0 {
		_ = json.Unmarshal(a.AllowedRolesRaw, &a.AllowedRoles)
	}
}

// Allows reports whether the role may execute this action
func (a *ActionDefinition) Allows(role string) bool {
	if len(a.AllowedRoles) == 0 {
		return true
	}
	for _, r := range a.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Well-known action slugs seeded with the schema
const (
	ActionContribution  = "contribution"
	ActionReferralBonus = "referral_bonus"
	ActionGenesisQuest  = "genesis_quest"
	ActionQuestComplete = "quest_complete"
)

// Completion is one row of the action-completion history stream
type Completion struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	ActionSlug     string    `db:"action_slug" json:"action_slug"`
	ReferenceID    string    `db:"reference_id" json:"reference_id"`
	CreditsAwarded int64     `db:"credits_awarded" json:"credits_awarded"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}
