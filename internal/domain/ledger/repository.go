package ledger

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

// Store defines ledger data access
type Store interface {
	// Append inserts an entry and updates the balance in one transaction.
	// When an entry with the same (user, source event, source event id)
	// already exists, the existing entry is returned with duplicate=true
	// and nothing is written.
	Append(ctx context.Context, e *Entry) (entry *Entry, duplicate bool, err error)

	GetBySourceEvent(ctx context.Context, userID uuid.UUID, sourceEvent, sourceEventID string) (*Entry, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// SweepDue advances cliff and vesting transitions that are due at now,
	// moving totals between balance buckets in the same transaction.
	SweepDue(ctx context.Context, schedule Schedule, now time.Time, batchSize int) ([]*Entry, error)

	// Forfeit moves every non-terminal entry of the user to forfeited.
	Forfeit(ctx context.Context, userID uuid.UUID) (entries int, credits int64, err error)

	// Recompute rebuilds the balance row from the entries. Audit/repair
	// only, never part of the issuance hot path.
	Recompute(ctx context.Context, userID uuid.UUID) (*Balance, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ledger repository
func NewRepository(db *sqlx.DB) Store {
	return &repository{db: db}
}

const entryColumns = `id, user_id, credits_amount, source_event, source_event_id, vesting_status, earned_at, updated_at`

func (r *repository) Append(ctx context.Context, e *Entry) (*Entry, bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, false, fmt.Errorf("%w: begin tx", ErrPersistence)
	}
	defer tx.Rollback()

	existing, err := getBySourceEvent(ctx, tx, e.UserID, e.SourceEvent, e.SourceEventID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, credits_amount, source_event, source_event_id, vesting_status, earned_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, e.CreditsAmount, e.SourceEvent, e.SourceEventID, e.VestingStatus, e.EarnedAt, e.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == sqlStateUniqueViolation {
			// Lost the race to a concurrent issuance of the same event.
			// The transaction is poisoned, so re-read outside of it.
			tx.Rollback()
			existing, readErr := r.GetBySourceEvent(ctx, e.UserID, e.SourceEvent, e.SourceEventID)
			if readErr != nil {
				return nil, false, readErr
			}
			if existing != nil {
				return existing, true, nil
			}
			return nil, false, fmt.Errorf("%w: insert entry", ErrPersistence)
		}
		return nil, false, fmt.Errorf("%w: insert entry", ErrPersistence)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reward_balances (user_id, unvested_total, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET unvested_total = reward_balances.unvested_total + EXCLUDED.unvested_total,
		    updated_at = now()
	`, e.UserID, e.CreditsAmount)
	if err != nil {
		return nil, false, fmt.Errorf("%w: update balance", ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%w: commit tx", ErrPersistence)
	}
	return e, false, nil
}

func getBySourceEvent(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, sourceEvent, sourceEventID string) (*Entry, error) {
	var e Entry
	err := sqlx.GetContext(ctx, q, &e, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND source_event = $2 AND source_event_id = $3
	`, userID, sourceEvent, sourceEventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get by source event", ErrPersistence)
	}
	return &e, nil
}

func (r *repository) GetBySourceEvent(ctx context.Context, userID uuid.UUID, sourceEvent, sourceEventID string) (*Entry, error) {
	return getBySourceEvent(ctx, r.db, userID, sourceEvent, sourceEventID)
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	var b Balance
	err := r.db.GetContext(ctx, &b, `
		SELECT user_id, unvested_total, vesting_total, vested_total, forfeited_total, updated_at
		FROM reward_balances
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Balance{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get balance", ErrPersistence)
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries := make([]*Entry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY earned_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries", ErrPersistence)
	}
	return entries, nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries", ErrPersistence)
	}
	return count, nil
}

func (r *repository) SweepDue(ctx context.Context, schedule Schedule, now time.Time, batchSize int) ([]*Entry, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrPersistence)
	}
	defer tx.Rollback()

	// Nothing younger than the cliff can transition, so the scan is bounded.
	cutoff := now.Add(-schedule.Cliff)

	due := make([]*Entry, 0)
	err = tx.SelectContext(ctx, &due, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE vesting_status IN ('in_cliff', 'vesting') AND earned_at <= $1
		ORDER BY earned_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, cutoff, batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: select due entries", ErrPersistence)
	}

	transitioned := make([]*Entry, 0, len(due))
	for _, e := range due {
		next := NextState(e, now, schedule)
		if next == e.VestingStatus {
			continue
		}
		if err := transition(ctx, tx, e, next); err != nil {
			return nil, err
		}
		e.VestingStatus = next
		transitioned = append(transitioned, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrPersistence)
	}
	return transitioned, nil
}

// transition flips one entry's state and moves its amount between balance
// buckets inside the caller's transaction.
func transition(ctx context.Context, tx *sqlx.Tx, e *Entry, next Status) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries SET vesting_status = $2, updated_at = now() WHERE id = $1
	`, e.ID, next)
	if err != nil {
		return fmt.Errorf("%w: update entry state", ErrPersistence)
	}

	// Column names come from the closed bucket mapping, never from input.
	query := fmt.Sprintf(`
		UPDATE reward_balances
		SET %s = %s - $2, %s = %s + $2, updated_at = now()
		WHERE user_id = $1
	`, bucket(e.VestingStatus), bucket(e.VestingStatus), bucket(next), bucket(next))
	if _, err := tx.ExecContext(ctx, query, e.UserID, e.CreditsAmount); err != nil {
		return fmt.Errorf("%w: move balance bucket", ErrPersistence)
	}
	return nil
}

func (r *repository) Forfeit(ctx context.Context, userID uuid.UUID) (int, int64, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: begin tx", ErrPersistence)
	}
	defer tx.Rollback()

	open := make([]*Entry, 0)
	err = tx.SelectContext(ctx, &open, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND vesting_status IN ('in_cliff', 'vesting')
		FOR UPDATE
	`, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: select open entries", ErrPersistence)
	}
	if len(open) == 0 {
		return 0, 0, nil
	}

	ids := make([]uuid.UUID, 0, len(open))
	var cliffSum, vestingSum int64
	for _, e := range open {
		ids = append(ids, e.ID)
		if e.VestingStatus == StatusInCliff {
			cliffSum += e.CreditsAmount
		} else {
			vestingSum += e.CreditsAmount
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ledger_entries SET vesting_status = 'forfeited', updated_at = now()
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: forfeit entries", ErrPersistence)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reward_balances
		SET unvested_total = unvested_total - $2,
		    vesting_total = vesting_total - $3,
		    forfeited_total = forfeited_total + $4,
		    updated_at = now()
		WHERE user_id = $1
	`, userID, cliffSum, vestingSum, cliffSum+vestingSum)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: update balance", ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%w: commit tx", ErrPersistence)
	}
	return len(open), cliffSum + vestingSum, nil
}

func (r *repository) Recompute(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrPersistence)
	}
	defer tx.Rollback()

	type stateSum struct {
		Status Status `db:"vesting_status"`
		Total  int64  `db:"total"`
	}
	sums := make([]stateSum, 0, 4)
	err = tx.SelectContext(ctx, &sums, `
		SELECT vesting_status, COALESCE(SUM(credits_amount), 0) AS total
		FROM ledger_entries
		WHERE user_id = $1
		GROUP BY vesting_status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: sum entries", ErrPersistence)
	}

	b := &Balance{UserID: userID}
	for _, s := range sums {
		switch s.Status {
		case StatusInCliff:
			b.UnvestedTotal = s.Total
		case StatusVesting:
			b.VestingTotal = s.Total
		case StatusVested:
			b.VestedTotal = s.Total
		case StatusForfeited:
			b.ForfeitedTotal = s.Total
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reward_balances (user_id, unvested_total, vesting_total, vested_total, forfeited_total, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE
		SET unvested_total = EXCLUDED.unvested_total,
		    vesting_total = EXCLUDED.vesting_total,
		    vested_total = EXCLUDED.vested_total,
		    forfeited_total = EXCLUDED.forfeited_total,
		    updated_at = now()
	`, userID, b.UnvestedTotal, b.VestingTotal, b.VestedTotal, b.ForfeitedTotal)
	if err != nil {
		return nil, fmt.Errorf("%w: write balance", ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrPersistence)
	}
	return b, nil
}
