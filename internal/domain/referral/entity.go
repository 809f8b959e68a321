package referral

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusCredited = "credited"
)

// Referral links a newly registered backer to the backer whose code they
// used. At most one row exists per referred user.
type Referral struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	ReferrerID uuid.UUID    `db:"referrer_id" json:"referrer_id"`
	ReferredID uuid.UUID    `db:"referred_id" json:"referred_id"`
	Code       string       `db:"code" json:"code"`
	Status     string       `db:"status" json:"status"`
	CreditedAt sql.NullTime `db:"credited_at" json:"credited_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
