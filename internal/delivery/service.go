// Package delivery prices deliveries and keeps the session's latest quote.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/store"
)

// Quote is the delivery price remembered for a session.
type Quote struct {
	pricing.DeliveryQuote
	QuotedAt time.Time `json:"quotedAt"`
}

var quoteKey = store.NewKey[Quote]("deliveryPrice")

// Service runs delivery quotes and coefficient administration.
type Service struct {
	store  *store.Store
	quoter *pricing.Quoter
	events events.Emitter
	now    func() time.Time
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  *store.Store
	Quoter *pricing.Quoter
	Events events.Emitter
	Now    func() time.Time
	Logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("delivery: store is required")
	}
	if cfg.Quoter == nil {
		return nil, errors.New("delivery: quoter is required")
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: cfg.Store, quoter: cfg.Quoter, events: cfg.Events, now: cfg.Now, logger: cfg.Logger}, nil
}

// Quote prices trip and stores the result as the session's delivery price.
func (s *Service) Quote(ctx context.Context, trip pricing.Trip) (Quote, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return Quote{}, err
	}
	dq, err := s.quoter.QuoteDelivery(ctx, trip)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{DeliveryQuote: dq, QuotedAt: s.now().UTC()}
	if err := quoteKey.Set(ctx, sc, q); err != nil {
		return Quote{}, err
	}
	s.events.Publish(ctx, events.TopicDeliveryQuoted, sc.SessionID(), dq)
	return q, nil
}

// Current returns the stored quote, if any.
func (s *Service) Current(ctx context.Context) (Quote, bool, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return Quote{}, false, err
	}
	return quoteKey.Get(ctx, sc)
}

// Reset forgets the stored quote.
func (s *Service) Reset(ctx context.Context) error {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return err
	}
	return quoteKey.Remove(ctx, sc)
}

// Estimate prices trip without storing it.
func (s *Service) Estimate(ctx context.Context, trip pricing.Trip) (pricing.DeliveryQuote, error) {
	return s.quoter.QuoteDelivery(ctx, trip)
}

// Bands lists the selectable distances.
func (s *Service) Bands() []pricing.Band {
	return pricing.DistanceBands()
}

// Coefficients returns the authoritative coefficients.
func (s *Service) Coefficients(ctx context.Context) (pricing.Coefficients, error) {
	return s.quoter.Coefficients(ctx)
}

// UpdateCoefficients validates, persists and remembers new coefficients.
func (s *Service) UpdateCoefficients(ctx context.Context, c pricing.Coefficients) (string, error) {
	msg, err := s.quoter.UpdateCoefficients(ctx, c)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Float64("distance_coefficient", c.DistanceCoefficient).
		Float64("weight_coefficient", c.WeightCoefficient).
		Msg("coefficients_updated")
	s.events.Publish(ctx, events.TopicCoefficientsUpdated, "", c)
	return msg, nil
}
