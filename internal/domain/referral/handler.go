package referral

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/response"
	"github.com/crowdpad/rewards-api/internal/pkg/validator"
)

// Handler serves referral endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates referral handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Attribute links the caller to the owner of the submitted code
func (h *Handler) Attribute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req AttributeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.Attribute(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownCode):
			response.NotFound(w, "referral code not found")
		case errors.Is(err, ErrAlreadyAttributed):
			response.Conflict(w, "a referrer is already recorded for this account")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// ListMine returns the caller's attributions as a referrer
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

	refs, total, err := h.svc.ListMine(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]ReferralResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, toResponse(ref))
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

// Routes mounts referral endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/attribute", h.Attribute)
	r.Get("/", h.ListMine)
	return r
}
