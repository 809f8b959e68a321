package analytics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/response"
)

// Handler serves the reporting mirror
type Handler struct {
	repo Repository
}

// NewHandler creates analytics handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Summary returns per-metric aggregates for the caller
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summaries, err := h.repo.SummaryByUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, summaries)
}

// Recent returns the latest raw data points for one metric
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	metricName := r.URL.Query().Get("metric")
	if metricName == "" {
		response.BadRequest(w, "metric query parameter is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.BadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	metrics, err := h.repo.ListRecent(r.Context(), metricName, limit)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, metrics)
}

// Routes mounts analytics endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/summary", h.Summary)
	r.Get("/recent", h.Recent)
	return r
}
