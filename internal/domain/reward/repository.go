package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// Repository defines reward action data access
type Repository interface {
	ListActiveActions(ctx context.Context) ([]*ActionDefinition, error)

	// InsertCompletion records one action-completion history row. Returns
	// duplicate=true when the (user, action, reference) triple was already
	// recorded.
	InsertCompletion(ctx context.Context, c *Completion) (duplicate bool, err error)

	ListCompletions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Completion, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates reward repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActiveActions(ctx context.Context) ([]*ActionDefinition, error) {
	query := `
		SELECT slug, name, base_points, is_amount_based, is_referral_trigger,
		       allowed_roles, is_active, created_at
		FROM reward_actions
		WHERE is_active = true
		ORDER BY slug
	`
	var actions []*ActionDefinition
	if err := r.db.SelectContext(ctx, &actions, query); err != nil {
		return nil, err
	}
	for _, a := range actions {
		a.ParseJSONB()
	}
	return actions, nil
}

func (r *repository) InsertCompletion(ctx context.Context, c *Completion) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO action_completions (id, user_id, action_slug, reference_id, credits_awarded, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.UserID, c.ActionSlug, c.ReferenceID, c.CreditsAwarded, c.CompletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == sqlStateUniqueViolation {
			return true, nil
		}
		return false, fmt.Errorf("insert completion: %w", err)
	}
	return false, nil
}

func (r *repository) ListCompletions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Completion, error) {
	if limit <= 0 {
		limit = 20
	}
	completions := make([]*Completion, 0)
	err := r.db.SelectContext(ctx, &completions, `
		SELECT id, user_id, action_slug, reference_id, credits_awarded, completed_at
		FROM action_completions
		WHERE user_id = $1
		ORDER BY completed_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return completions, nil
}
