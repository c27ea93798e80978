package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
)

// Handler exposes the order dashboard and confirmation page.
type Handler struct {
	Svc *Service
}

// Routes mounts order endpoints. Callers wrap them with an authentication middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/last", h.Last)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/select", h.Select)
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	history, err := h.Svc.History(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	limit := common.ParseLimit(r, 20)
	total := len(history)
	if limit < total {
		history = history[:limit]
	}
	items := make([]map[string]any, 0, len(history))
	for _, o := range history {
		items = append(items, summaryView(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Limit: limit, TotalItems: total, HasMore: limit < total},
	})
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detailView(o)})
}

// Select handles POST /orders/{id}/select.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Select(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detailView(o)})
}

// Last handles GET /orders/last.
func (h *Handler) Last(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Last(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detailView(o)})
}

func summaryView(o Order) map[string]any {
	return map[string]any{
		"id":         o.ID,
		"orderDate":  o.OrderDate,
		"status":     o.Status,
		"itemCount":  len(o.Items),
		"total":      o.Total,
		"totalLabel": pricing.FormatMoney(o.Total),
	}
}

func detailView(o Order) map[string]any {
	return map[string]any{
		"order":             o,
		"estimatedDelivery": o.EstimatedDelivery(),
		"display": map[string]string{
			"subtotal": pricing.FormatMoney(o.Subtotal),
			"shipping": pricing.FormatMoney(o.ShippingFee),
			"tax":      pricing.FormatMoney(o.TaxAmount),
			"total":    pricing.FormatMoney(o.Total),
		},
	}
}
