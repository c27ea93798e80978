package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
)

// Handler exposes delivery quote endpoints and coefficient administration.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, validate: common.NewValidator()}
}

// Routes mounts the public delivery endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/bands", h.Bands)
	r.Post("/quote", h.Quote)
	r.Post("/estimate", h.Estimate)
	r.Get("/quote", h.Current)
	r.Delete("/quote", h.Reset)
}

// AdminRoutes mounts coefficient administration.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/coefficients", h.GetCoefficients)
	r.Put("/coefficients", h.PutCoefficients)
}

// Bands handles GET /delivery/bands.
func (h *Handler) Bands(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Bands()})
}

// Quote handles POST /delivery/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var trip pricing.Trip
	if err := common.DecodeJSON(r, &trip); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.Quote(r.Context(), trip)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quoteView(q)})
}

// Estimate handles POST /delivery/estimate.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var trip pricing.Trip
	if err := common.DecodeJSON(r, &trip); err != nil {
		common.WriteError(w, err)
		return
	}
	dq, err := h.service.Estimate(r.Context(), trip)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dq})
}

// Current handles GET /delivery/quote.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	q, ok, err := h.service.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !ok {
		common.WriteError(w, common.NewNotFoundError("no delivery quote"))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quoteView(q)})
}

// Reset handles DELETE /delivery/quote.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type coefficientsRequest struct {
	DistanceCoefficient *float64 `json:"distance_coefficient" validate:"required"`
	WeightCoefficient   *float64 `json:"weight_coefficient" validate:"required"`
}

// GetCoefficients handles GET /admin/coefficients.
func (h *Handler) GetCoefficients(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Coefficients(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// PutCoefficients handles PUT /admin/coefficients.
func (h *Handler) PutCoefficients(w http.ResponseWriter, r *http.Request) {
	var req coefficientsRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.WriteError(w, common.NewValidationError("distance_coefficient and weight_coefficient are required", common.FieldErrors(err)))
		return
	}
	c := pricing.Coefficients{DistanceCoefficient: *req.DistanceCoefficient, WeightCoefficient: *req.WeightCoefficient}
	msg, err := h.service.UpdateCoefficients(r.Context(), c)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c, "message": msg})
}

func quoteView(q Quote) map[string]any {
	return map[string]any{
		"distance": q.Distance,
		"weight":   q.Weight,
		"price":    q.Price,
		"display":  pricing.FormatMoney(q.Price),
		"source":   q.Source,
		"quotedAt": q.QuotedAt,
	}
}
