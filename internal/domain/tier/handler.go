package tier

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crowdpad/rewards-api/internal/pkg/response"
)

// Handler serves the tier catalog
type Handler struct {
	catalog *Catalog
}

// NewHandler creates tier handler
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// List returns active tiers ascending by minimum amount
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.catalog.ListActive(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]TierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, ToResponse(t))
	}
	response.OK(w, out)
}

// Preview resolves an amount to a tier without issuing anything
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		response.BadRequest(w, "amount must be a positive number")
		return
	}

	t, ok, err := h.catalog.Resolve(r.Context(), amount)
	if err != nil {
		response.InternalError(w)
		return
	}
	if !ok {
		response.OK(w, map[string]interface{}{"tier": nil})
		return
	}
	response.OK(w, map[string]interface{}{"tier": ToResponse(t)})
}

// Routes mounts tier endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/preview", h.Preview)
	return r
}
