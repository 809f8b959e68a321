package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines analytics mirror data access
type Repository interface {
	Insert(ctx context.Context, m *Metric) error
	SummaryByUser(ctx context.Context, userID uuid.UUID) ([]*MetricSummary, error)
	ListRecent(ctx context.Context, metricName string, limit int) ([]*Metric, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates analytics repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const queryTimeout = 5 * time.Second

func (r *repository) Insert(ctx context.Context, m *Metric) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO analytics_metrics (metric_name, metric_value, user_id, dimensions)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recorded_at`,
		m.MetricName, m.MetricValue, m.UserID, m.DimensionsRaw,
	).Scan(&m.ID, &m.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (r *repository) SummaryByUser(ctx context.Context, userID uuid.UUID) ([]*MetricSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	summaries := []*MetricSummary{}
	err := r.db.SelectContext(ctx, &summaries,
		`SELECT metric_name, COUNT(*) AS count, COALESCE(SUM(metric_value), 0) AS total
		 FROM analytics_metrics
		 WHERE user_id = $1
		 GROUP BY metric_name
		 ORDER BY metric_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("summary by user: %w", err)
	}
	return summaries, nil
}

func (r *repository) ListRecent(ctx context.Context, metricName string, limit int) ([]*Metric, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	metrics := []*Metric{}
	err := r.db.SelectContext(ctx, &metrics,
		`SELECT id, metric_name, metric_value, user_id, dimensions, recorded_at
		 FROM analytics_metrics
		 WHERE metric_name = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`, metricName, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent metrics: %w", err)
	}
	return metrics, nil
}
