package tier

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines tier data access
type Repository interface {
	ListActive(ctx context.Context) ([]*Tier, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Tier, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates tier repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context) ([]*Tier, error) {
	query := `
		SELECT
			id, slug, name, min_amount, credit_multiplier,
			reward_credits_base, benefits, is_active, created_at
		FROM support_tiers
		WHERE is_active = true
		ORDER BY min_amount
	`
	var tiers []*Tier
	if err := r.db.SelectContext(ctx, &tiers, query); err != nil {
		return nil, err
	}
	for _, t := range tiers {
		t.ParseJSONB()
	}
	return tiers, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Tier, error) {
	query := `
		SELECT
			id, slug, name, min_amount, credit_multiplier,
			reward_credits_base, benefits, is_active, created_at
		FROM support_tiers
		WHERE id = $1
	`
	var t Tier
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.ParseJSONB()
	return &t, nil
}
