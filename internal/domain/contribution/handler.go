package contribution

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/domain/reward"
	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/response"
	"github.com/crowdpad/rewards-api/internal/pkg/validator"
)

// Handler serves contribution endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates contribution handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Record books a settled payment for the caller
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req RecordRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	c, duplicate, err := h.svc.Record(r.Context(), userID, RecordInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		ProviderRef: req.ProviderRef,
		Role:        middleware.GetRole(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, reward.ErrInvalidAmount), errors.Is(err, reward.ErrMissingReference):
			response.BadRequest(w, err.Error())
		case errors.Is(err, reward.ErrActionNotAllowed):
			response.Forbidden(w, "contributions are not enabled for your role")
		case errors.Is(err, ledger.ErrPersistence):
			response.Error(w, http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "ledger temporarily unavailable, retry with the same provider reference")
		default:
			response.InternalError(w)
		}
		return
	}

	if duplicate {
		response.OK(w, toResponse(c, true))
		return
	}
	response.Created(w, toResponse(c, false))
}

// ListMine returns the caller's contribution history
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	list, total, err := h.svc.ListMine(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]ContributionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c, false))
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

// Routes mounts contribution endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Record)
	r.Get("/", h.ListMine)
	return r
}
