package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// Repository defines referral data access
type Repository interface {
	// Insert records the attribution. The referred user column carries a
	// unique constraint, so a second attribution for the same user fails
	// with ErrAlreadyAttributed.
	Insert(ctx context.Context, ref *Referral) error

	MarkCredited(ctx context.Context, id uuid.UUID) error
	GetByReferred(ctx context.Context, referredID uuid.UUID) (*Referral, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*Referral, error)
	CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates referral repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const queryTimeout = 5 * time.Second

func (r *repository) Insert(ctx context.Context, ref *Referral) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO referrals (referrer_id, referred_id, code, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		ref.ReferrerID, ref.ReferredID, ref.Code, ref.Status,
	).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUniqueViolation {
			return ErrAlreadyAttributed
		}
		return fmt.Errorf("%w: insert referral", ErrInternal)
	}
	return nil
}

func (r *repository) MarkCredited(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`UPDATE referrals SET status = $1, credited_at = NOW() WHERE id = $2`,
		StatusCredited, id)
	if err != nil {
		return fmt.Errorf("%w: mark credited", ErrInternal)
	}
	return nil
}

func (r *repository) GetByReferred(ctx context.Context, referredID uuid.UUID) (*Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ref Referral
	err := r.db.GetContext(ctx, &ref,
		`SELECT id, referrer_id, referred_id, code, status, credited_at, created_at
		 FROM referrals WHERE referred_id = $1`, referredID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get referral", ErrInternal)
	}
	return &ref, nil
}

func (r *repository) ListByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	refs := []*Referral{}
	err := r.db.SelectContext(ctx, &refs,
		`SELECT id, referrer_id, referred_id, code, status, credited_at, created_at
		 FROM referrals
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, referrerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list referrals", ErrInternal)
	}
	return refs, nil
}

func (r *repository) CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, referrerID)
	if err != nil {
		return 0, fmt.Errorf("%w: count referrals", ErrInternal)
	}
	return count, nil
}
