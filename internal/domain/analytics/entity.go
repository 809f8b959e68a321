package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Metric is one denormalized fact in the reporting mirror. The mirror is
// eventually consistent with the ledger; readers must not treat it as a
// source of truth for balances.
type Metric struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	MetricName    string        `db:"metric_name" json:"metric_name"`
	MetricValue   float64       `db:"metric_value" json:"metric_value"`
	UserID        uuid.NullUUID `db:"user_id" json:"user_id,omitempty"`
	DimensionsRaw []byte        `db:"dimensions" json:"-"`
	RecordedAt    time.Time     `db:"recorded_at" json:"recorded_at"`
}

// Dimensions decodes the JSONB dimensions column
func (m *Metric) Dimensions() (map[string]string, error) {
	if len(m.DimensionsRaw) == 0 {
		return nil, nil
	}
	var dims map[string]string
	if err := json.Unmarshal(m.DimensionsRaw, &dims); err != nil {
		return nil, err
	}
	return dims, nil
}

// SetDimensions encodes dims into the JSONB dimensions column
func (m *Metric) SetDimensions(dims map[string]string) error {
	if len(dims) == 0 {
		m.DimensionsRaw = nil
		return nil
	}
	data, err := json.Marshal(dims)
	if err != nil {
		return err
	}
	m.DimensionsRaw = data
	return nil
}

// MetricSummary aggregates one metric name for a user
type MetricSummary struct {
	MetricName string  `db:"metric_name" json:"metric_name"`
	Count      int64   `db:"count" json:"count"`
	Total      float64 `db:"total" json:"total"`
}
