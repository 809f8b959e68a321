package notification

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeCreditsIssued    Type = "credits_issued"    // Backer: new credits entered the cliff
	TypeVestingAdvanced  Type = "vesting_advanced"  // Backer: entry moved to vesting or vested
	TypeReferralCredited Type = "referral_credited" // Referrer: bonus paid for a signup
	TypeCreditsForfeited Type = "credits_forfeited" // Backer: admin forfeited outstanding credits
)

// Notification represents a user notification
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      Type            `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Body      sql.NullString  `db:"body" json:"body,omitempty"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime    `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SetData encodes metadata to JSON
func (n *Notification) SetData(metadata map[string]interface{}) {
	if len(metadata) > 0 {
		n.Data, _ = json.Marshal(metadata)
	}
}
