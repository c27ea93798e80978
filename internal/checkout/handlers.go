package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
)

// Handler exposes checkout endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: common.NewValidator()}
}

// Routes mounts checkout endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Post("/", h.Place)
}

// Summary handles GET /checkout/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"display": map[string]string{
			"subtotal": pricing.FormatMoney(sum.Subtotal),
			"shipping": pricing.FormatShipping(sum.ShippingFee, sum.ShippingCalculated),
			"tax":      pricing.FormatMoney(sum.Tax),
			"total":    pricing.FormatMoney(sum.Total),
		},
	})
}

type placeRequest struct {
	PaymentToken string `json:"paymentToken" validate:"required"`
}

// Place handles POST /checkout.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.WriteError(w, common.NewValidationError("invalid payment details", common.FieldErrors(err)))
		return
	}
	o, err := h.svc.Place(r.Context(), req.PaymentToken)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}
