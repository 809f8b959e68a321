package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/errorhandler"
	"github.com/crowdpad/rewards-api/internal/pkg/response"
)

// Handler serves ledger reads and admin maintenance operations
type Handler struct {
	svc *Service
}

// NewHandler creates ledger handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns the caller's ledger entries, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	entries, total, err := h.svc.ListEntries(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, out, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// Balance returns the caller's materialized balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, toBalanceResponse(balance))
}

// Forfeit cancels every open grant of a user. Admin only; triggered when a
// subscription is cancelled before vesting completes.
func (h *Handler) Forfeit(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	reason := r.URL.Query().Get("reason")
	entries, credits, err := h.svc.Forfeit(r.Context(), userID, reason)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError,
			"FORFEIT_FAILED", "failed to forfeit open grants", err)
		return
	}
	response.OK(w, map[string]interface{}{
		"forfeited_entries": entries,
		"forfeited_credits": credits,
	})
}

// Audit recomputes a user's balance from the ledger. Admin only.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	balance, consistent, err := h.svc.Audit(r.Context(), userID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError,
			"AUDIT_FAILED", "failed to reconcile balance", err)
		return
	}
	response.OK(w, map[string]interface{}{
		"balance":    toBalanceResponse(balance),
		"consistent": consistent,
	})
}

// Routes mounts ledger endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/balance", h.Balance)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Post("/users/{userID}/forfeit", h.Forfeit)
		r.Post("/users/{userID}/audit", h.Audit)
	})
	return r
}
