package contribution

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

// Repository defines contribution data access
type Repository interface {
	// Insert persists the contribution. provider_ref is unique; on a
	// replay the existing row is returned with duplicate=true.
	Insert(ctx context.Context, c *Contribution) (stored *Contribution, duplicate bool, err error)

	GetByProviderRef(ctx context.Context, providerRef string) (*Contribution, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Contribution, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates contribution repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const queryTimeout = 5 * time.Second

const contributionColumns = `id, user_id, amount, currency, provider_ref, tier_slug, credits_awarded, ledger_entry_id, created_at`

func (r *repository) Insert(ctx context.Context, c *Contribution) (*Contribution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO contributions (user_id, amount, currency, provider_ref, tier_slug, credits_awarded, ledger_entry_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		c.UserID, c.Amount, c.Currency, c.ProviderRef, c.TierSlug, c.CreditsAwarded, c.LedgerEntryID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUniqueViolation {
			existing, getErr := r.GetByProviderRef(ctx, c.ProviderRef)
			if getErr != nil {
				return nil, false, getErr
			}
			if existing == nil {
				return nil, false, fmt.Errorf("%w: contribution vanished after conflict", ErrInternal)
			}
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("%w: insert contribution", ErrInternal)
	}
	return c, false, nil
}

func (r *repository) GetByProviderRef(ctx context.Context, providerRef string) (*Contribution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Contribution
	err := r.db.GetContext(ctx, &c,
		`SELECT `+contributionColumns+` FROM contributions WHERE provider_ref = $1`, providerRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get contribution", ErrInternal)
	}
	return &c, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Contribution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	list := []*Contribution{}
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+contributionColumns+`
		 FROM contributions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list contributions", ErrInternal)
	}
	return list, nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM contributions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count contributions", ErrInternal)
	}
	return count, nil
}
