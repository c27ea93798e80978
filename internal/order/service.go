// Package order keeps the session's placed orders and the confirmation view.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/store"
)

// StatusProcessing is the status of a freshly placed order.
const StatusProcessing = "Processing"

// Order is immutable once placed.
type Order struct {
	ID             string         `json:"id"`
	Items          []pricing.Line `json:"items"`
	Subtotal       float64        `json:"subtotal"`
	ShippingFee    float64        `json:"shippingFee"`
	TaxAmount      float64        `json:"taxAmount"`
	Total          float64        `json:"total"`
	TrackingNumber string         `json:"trackingNumber"`
	DeliveryDays   int            `json:"deliveryDays"`
	OrderDate      time.Time      `json:"orderDate"`
	Status         string         `json:"status"`
}

// EstimatedDelivery is the order date plus the promised delivery days.
func (o Order) EstimatedDelivery() time.Time {
	return o.OrderDate.AddDate(0, 0, o.DeliveryDays)
}

var (
	lastOrderKey = store.NewKey[Order]("lastOrder")
	historyKey   = store.NewKey[[]Order]("orderHistory")
)

// ErrNoOrder is returned when the session has no order to show.
var ErrNoOrder = common.NewNotFoundError("order not found")

// Service reads and records orders in the session store.
type Service struct {
	store *store.Store
}

// NewService constructs a Service.
func NewService(st *store.Store) (*Service, error) {
	if st == nil {
		return nil, errors.New("order: store is required")
	}
	return &Service{store: st}, nil
}

// Record stores o as the last order and prepends it to the history.
func (s *Service) Record(ctx context.Context, o Order) error {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return err
	}
	return sc.Atomically(ctx, func(ctx context.Context) error {
		history, err := s.history(ctx, sc)
		if err != nil {
			return err
		}
		if err := lastOrderKey.Set(ctx, sc, o); err != nil {
			return err
		}
		return historyKey.Set(ctx, sc, append([]Order{o}, history...))
	})
}

// History returns the session's orders, newest first. An empty history is seeded from the
// last order when one exists.
func (s *Service) History(ctx context.Context) ([]Order, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	var out []Order
	err = sc.Atomically(ctx, func(ctx context.Context) error {
		out, err = s.history(ctx, sc)
		return err
	})
	return out, err
}

func (s *Service) history(ctx context.Context, sc store.Scope) ([]Order, error) {
	history, ok, err := historyKey.Get(ctx, sc)
	if err != nil {
		return nil, err
	}
	if ok && len(history) > 0 {
		return history, nil
	}
	last, ok, err := lastOrderKey.Get(ctx, sc)
	if err != nil || !ok {
		return []Order{}, err
	}
	if last.ID == "" {
		last.ID = uuid.NewString()
		if err := lastOrderKey.Set(ctx, sc, last); err != nil {
			return nil, err
		}
	}
	history = []Order{last}
	if err := historyKey.Set(ctx, sc, history); err != nil {
		return nil, err
	}
	return history, nil
}

// Get finds an order in the history.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	history, err := s.History(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range history {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNoOrder
}

// Select makes the order with id the one shown on the confirmation page.
func (s *Service) Select(ctx context.Context, id string) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return Order{}, err
	}
	if err := lastOrderKey.Set(ctx, sc, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Last returns the order shown on the confirmation page.
func (s *Service) Last(ctx context.Context) (Order, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return Order{}, err
	}
	o, ok, err := lastOrderKey.Get(ctx, sc)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrNoOrder
	}
	return o, nil
}
