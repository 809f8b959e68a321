package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines profile data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByReferralCode(ctx context.Context, code string) (*Profile, error)

	// SetReferrer back-links the referred profile to its referrer. It is
	// a no-op when a referrer is already recorded.
	SetReferrer(ctx context.Context, userID, referrerID uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates profile repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const queryTimeout = 5 * time.Second

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Profile
	err := r.db.GetContext(ctx, &p,
		`SELECT id, role, referral_code, referrer_id, locale, genesis_quest_slug, created_at, updated_at
		 FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile", ErrInternal)
	}
	return &p, nil
}

func (r *repository) GetByReferralCode(ctx context.Context, code string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Profile
	err := r.db.GetContext(ctx, &p,
		`SELECT id, role, referral_code, referrer_id, locale, genesis_quest_slug, created_at, updated_at
		 FROM profiles WHERE referral_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile by referral code", ErrInternal)
	}
	return &p, nil
}

func (r *repository) SetReferrer(ctx context.Context, userID, referrerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET referrer_id = $1, updated_at = NOW()
		 WHERE id = $2 AND referrer_id IS NULL`, referrerID, userID)
	if err != nil {
		return fmt.Errorf("%w: set referrer", ErrInternal)
	}
	return nil
}
