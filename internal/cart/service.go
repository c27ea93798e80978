// Package cart manages the session's shopping cart.
package cart

import (
	"context"
	"errors"

	"github.com/noah-isme/jwfoods/internal/catalog"
	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/delivery"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/store"
)

var cartKey = store.NewKey[[]pricing.Line]("cart")

// Products resolves catalog entries for Add.
type Products interface {
	Get(ctx context.Context, id int) (catalog.Product, error)
}

// Deliveries exposes the session's stored delivery quote.
type Deliveries interface {
	Current(ctx context.Context) (delivery.Quote, bool, error)
}

// View is the cart page model.
type View struct {
	Items              []pricing.Line `json:"items"`
	Count              int            `json:"count"`
	Subtotal           float64        `json:"subtotal"`
	Delivery           float64        `json:"delivery"`
	DeliveryCalculated bool           `json:"deliveryCalculated"`
	Total              float64        `json:"total"`
}

// Service implements cart operations over the session store.
type Service struct {
	store      *store.Store
	products   Products
	deliveries Deliveries
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store      *store.Store
	Products   Products
	Deliveries Deliveries
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("cart: store is required")
	}
	if cfg.Products == nil {
		return nil, errors.New("cart: products are required")
	}
	return &Service{store: cfg.Store, products: cfg.Products, deliveries: cfg.Deliveries}, nil
}

// Lines returns the stored cart lines.
func (s *Service) Lines(ctx context.Context) ([]pricing.Line, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	lines, _, err := cartKey.Get(ctx, sc)
	return lines, err
}

// Get builds the cart view, including the stored delivery price.
func (s *Service) Get(ctx context.Context) (View, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, lines)
}

// Add puts one unit of productID into the cart.
func (s *Service) Add(ctx context.Context, productID int) (View, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, func(lines []pricing.Line) []pricing.Line {
		for i := range lines {
			if lines[i].ID == p.ID {
				lines[i].Quantity++
				return lines
			}
		}
		return append(lines, pricing.Line{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
	})
}

// SetQuantity changes a line's quantity. Quantities below 1 leave the cart unchanged.
func (s *Service) SetQuantity(ctx context.Context, productID, quantity int) (View, error) {
	if quantity < 1 {
		return s.Get(ctx)
	}
	return s.mutate(ctx, func(lines []pricing.Line) []pricing.Line {
		for i := range lines {
			if lines[i].ID == productID {
				lines[i].Quantity = quantity
			}
		}
		return lines
	})
}

// Remove drops productID from the cart.
func (s *Service) Remove(ctx context.Context, productID int) (View, error) {
	return s.mutate(ctx, func(lines []pricing.Line) []pricing.Line {
		kept := lines[:0]
		for _, l := range lines {
			if l.ID != productID {
				kept = append(kept, l)
			}
		}
		return kept
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return err
	}
	return sc.Atomically(ctx, func(ctx context.Context) error {
		return cartKey.Remove(ctx, sc)
	})
}

func (s *Service) mutate(ctx context.Context, fn func([]pricing.Line) []pricing.Line) (View, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return View{}, err
	}
	var lines []pricing.Line
	err = sc.Atomically(ctx, func(ctx context.Context) error {
		current, _, err := cartKey.Get(ctx, sc)
		if err != nil {
			return err
		}
		lines = fn(current)
		return cartKey.Set(ctx, sc, lines)
	})
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, lines)
}

func (s *Service) view(ctx context.Context, lines []pricing.Line) (View, error) {
	if lines == nil {
		lines = []pricing.Line{}
	}
	v := View{Items: lines, Subtotal: pricing.Subtotal(lines)}
	for _, l := range lines {
		v.Count += l.Quantity
	}
	if s.deliveries != nil {
		q, ok, err := s.deliveries.Current(ctx)
		if err != nil {
			return View{}, err
		}
		if ok {
			v.Delivery, v.DeliveryCalculated = q.Price, true
		}
	}
	v.Total = v.Subtotal + v.Delivery
	return v, nil
}

// ParseProductID validates a product id taken from a path or payload.
func ParseProductID(id int) error {
	if id <= 0 {
		return common.NewValidationError("invalid product id", map[string]string{"id": "must be a positive integer"})
	}
	return nil
}
