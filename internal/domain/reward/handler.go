package reward

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/response"
	"github.com/crowdpad/rewards-api/internal/pkg/validator"
)

// Handler serves reward actions
type Handler struct {
	svc *Service
}

// NewHandler creates reward handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListActions returns the active action definitions
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.svc.ListActions(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]ActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, toActionResponse(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	response.OK(w, out)
}

// Complete records a flat action completion for the caller
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	slug := chi.URLParam(r, "slug")

	var req CompleteActionRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.CompleteAction(r.Context(), userID, middleware.GetRole(r.Context()), slug, req.ReferenceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAction):
			response.NotFound(w, "unknown action")
		case errors.Is(err, ErrActionNotAllowed):
			response.Forbidden(w, "action not allowed for your role")
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingReference):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ledger.ErrPersistence):
			response.Error(w, http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "ledger temporarily unavailable, retry with the same reference")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// ListCompletions returns the caller's completion history
func (h *Handler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	completions, err := h.svc.ListCompletions(r.Context(), userID, 50, 0)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, completions)
}

// Routes mounts reward action endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.ListActions)
	r.Get("/completions", h.ListCompletions)
	r.Post("/{slug}/complete", h.Complete)
	return r
}
