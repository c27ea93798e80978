package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the cart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.Add)
	r.Patch("/items/{id}", h.SetQuantity)
	r.Delete("/items/{id}", h.Remove)
}

// Get returns cart contents and the delivery preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Add handles POST /cart/items.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID int `json:"productId"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := ParseProductID(payload.ProductID); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.Add(r.Context(), payload.ProductID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// SetQuantity handles PATCH /cart/items/{id}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.SetQuantity(r.Context(), id, payload.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Remove handles DELETE /cart/items/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Remove(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Clear(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if err := ParseProductID(id); err != nil {
		common.WriteError(w, err)
		return 0, false
	}
	return id, true
}

func writeView(w http.ResponseWriter, status int, v View) {
	common.JSON(w, status, map[string]any{
		"data": v,
		"display": map[string]string{
			"subtotal": pricing.FormatMoney(v.Subtotal),
			"delivery": pricing.FormatShipping(v.Delivery, v.DeliveryCalculated),
			"total":    pricing.FormatMoney(v.Total),
		},
	})
}
