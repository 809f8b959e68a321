package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recentRepoStub struct {
	metricsRepoStub
	metricName string
	limit      int
}

func (r *recentRepoStub) ListRecent(_ context.Context, metricName string, limit int) ([]*Metric, error) {
	r.metricName = metricName
	r.limit = limit
	return []*Metric{}, nil
}

func TestRecentRequiresMetricName(t *testing.T) {
	h := NewHandler(&recentRepoStub{})

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/recent", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without metric, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/recent?metric=credits_issued&limit=9999", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit, got %d", rec.Code)
	}
}

func TestRecentQueriesRepository(t *testing.T) {
	repo := &recentRepoStub{}
	h := NewHandler(repo)

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/recent?metric=credits_issued&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.metricName != "credits_issued" || repo.limit != 10 {
		t.Fatalf("expected query for credits_issued with limit 10, got %q/%d", repo.metricName, repo.limit)
	}

	// Default limit applies when none is given.
	rec = httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/recent?metric=credits_issued", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.limit != 50 {
		t.Fatalf("expected default limit 50, got %d", repo.limit)
	}
}
