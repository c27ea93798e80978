// Package checkout prices the order summary and places orders.
package checkout

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/delivery"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/obs"
	"github.com/noah-isme/jwfoods/internal/order"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/store"
)

var paymentTokenPattern = regexp.MustCompile(`^\d{1,16}$`)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Cart is the part of the cart service checkout consumes.
type Cart interface {
	Lines(ctx context.Context) ([]pricing.Line, error)
	Clear(ctx context.Context) error
}

// Deliveries is the part of the delivery service checkout consumes.
type Deliveries interface {
	Current(ctx context.Context) (delivery.Quote, bool, error)
	Reset(ctx context.Context) error
}

// Orders records placed orders.
type Orders interface {
	Record(ctx context.Context, o order.Order) error
}

// Summary is the checkout page model.
type Summary struct {
	Items []pricing.Line `json:"items"`
	pricing.Totals
	ShippingCalculated bool   `json:"shippingCalculated"`
	ShippingSource     string `json:"shippingSource"`
}

// Shipping sources reported on the summary.
const (
	ShippingStored  = "stored"
	ShippingDefault = "default"
)

// Service composes cart, delivery and order state into a checkout.
type Service struct {
	store      *store.Store
	cart       Cart
	deliveries Deliveries
	orders     Orders
	quoter     *pricing.Quoter
	events     events.Emitter
	cfg        Config
	logger     zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Config carries the pricing parameters of checkout.
type Config struct {
	TaxRate           float64
	DefaultDistanceKM float64
	UnitWeightKG      float64
	Now               func() time.Time
	Seed              int64
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store      *store.Store
	Cart       Cart
	Deliveries Deliveries
	Orders     Orders
	Quoter     *pricing.Quoter
	Events     events.Emitter
	Logger     zerolog.Logger
	Config     Config
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("checkout: store is required")
	case cfg.Cart == nil:
		return nil, errors.New("checkout: cart is required")
	case cfg.Deliveries == nil:
		return nil, errors.New("checkout: deliveries are required")
	case cfg.Orders == nil:
		return nil, errors.New("checkout: orders are required")
	case cfg.Quoter == nil:
		return nil, errors.New("checkout: quoter is required")
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	c := cfg.Config
	if c.TaxRate < 0 {
		c.TaxRate = pricing.DefaultTaxRate
	}
	if c.DefaultDistanceKM <= 0 {
		c.DefaultDistanceKM = 25
	}
	if c.UnitWeightKG <= 0 {
		c.UnitWeightKG = 0.5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Service{
		store:      cfg.Store,
		cart:       cfg.Cart,
		deliveries: cfg.Deliveries,
		orders:     cfg.Orders,
		quoter:     cfg.Quoter,
		events:     cfg.Events,
		cfg:        c,
		logger:     cfg.Logger,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Summary prices the current cart with the stored delivery quote, or a default quote when
// none was calculated.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	lines, err := s.cart.Lines(ctx)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, lines)
}

func (s *Service) summarize(ctx context.Context, lines []pricing.Line) (Summary, error) {
	if lines == nil {
		lines = []pricing.Line{}
	}
	sum := Summary{Items: lines}
	var fee float64
	q, ok, err := s.deliveries.Current(ctx)
	if err != nil {
		return Summary{}, err
	}
	switch {
	case ok:
		fee, sum.ShippingCalculated, sum.ShippingSource = q.Price, true, ShippingStored
	case len(lines) > 0:
		dq, err := s.quoter.QuoteDelivery(ctx, pricing.NewTrip(s.cfg.DefaultDistanceKM, s.weightOf(lines)))
		if err != nil {
			return Summary{}, err
		}
		fee, sum.ShippingCalculated, sum.ShippingSource = dq.Price, true, ShippingDefault
	}
	sum.Totals = pricing.QuoteOrderTotal(lines, fee, s.cfg.TaxRate)
	return sum, nil
}

func (s *Service) weightOf(lines []pricing.Line) float64 {
	var units int
	for _, l := range lines {
		units += l.Quantity
	}
	return float64(units) * s.cfg.UnitWeightKG
}

// Place validates the payment token, turns the cart into an order and clears the cart and
// stored delivery quote.
func (s *Service) Place(ctx context.Context, paymentToken string) (order.Order, error) {
	token := strings.TrimSpace(paymentToken)
	if !paymentTokenPattern.MatchString(token) {
		return order.Order{}, common.NewValidationError("invalid payment details", map[string]string{"paymentToken": "must be 1 to 16 digits"})
	}
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return order.Order{}, err
	}
	var placed order.Order
	err = sc.Atomically(ctx, func(ctx context.Context) error {
		lines, err := s.cart.Lines(ctx)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return common.NewValidationError("cart is empty", nil)
		}
		sum, err := s.summarize(ctx, lines)
		if err != nil {
			return err
		}
		placed = s.newOrder(sum)
		if err := s.orders.Record(ctx, placed); err != nil {
			return err
		}
		if err := s.cart.Clear(ctx); err != nil {
			return err
		}
		return s.deliveries.Reset(ctx)
	})
	if err != nil {
		return order.Order{}, err
	}
	obs.RecordOrder(placed.Total)
	s.logger.Info().
		Str("order_id", placed.ID).
		Float64("total", placed.Total).
		Str("session_id", sc.SessionID()).
		Msg("order_placed")
	s.events.Publish(ctx, events.TopicOrderPlaced, placed.ID, placed)
	return placed, nil
}

func (s *Service) newOrder(sum Summary) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracking := make([]byte, 10)
	for i := range tracking {
		tracking[i] = trackingAlphabet[s.rng.Intn(len(trackingAlphabet))]
	}
	return order.Order{
		ID:             uuid.NewString(),
		Items:          sum.Items,
		Subtotal:       sum.Subtotal,
		ShippingFee:    sum.ShippingFee,
		TaxAmount:      sum.Tax,
		Total:          sum.Total,
		TrackingNumber: string(tracking),
		DeliveryDays:   2 + s.rng.Intn(6),
		OrderDate:      s.cfg.Now().UTC(),
		Status:         order.StatusProcessing,
	}
}
