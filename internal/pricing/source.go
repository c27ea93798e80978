package pricing

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Source produces a delivery price for a validated distance and weight.
type Source interface {
	Name() string
	QuoteDelivery(ctx context.Context, distance, weight float64) (float64, error)
}

// CoefficientReader fetches the authoritative coefficients.
type CoefficientReader interface {
	GetCoefficients(ctx context.Context) (Coefficients, error)
}

// CoefficientWriter persists coefficients and returns the acknowledgement message.
type CoefficientWriter interface {
	UpdateCoefficients(ctx context.Context, c Coefficients) (string, error)
}

// Origin describes where a coefficient set came from.
type Origin string

const (
	OriginRemote    Origin = "remote"
	OriginLastKnown Origin = "last_known"
	OriginDefault   Origin = "default"
)

// CoefficientBook resolves coefficients for local pricing: remote first, then the last
// values seen in this process, then configured defaults.
type CoefficientBook struct {
	reader   CoefficientReader
	defaults Coefficients
	logger   zerolog.Logger

	mu   sync.RWMutex
	last *Coefficients
}

// NewCoefficientBook constructs a book. reader may be nil for a purely local setup.
func NewCoefficientBook(reader CoefficientReader, defaults Coefficients, logger zerolog.Logger) *CoefficientBook {
	if defaults.Validate() != nil {
		defaults = DefaultCoefficients()
	}
	return &CoefficientBook{reader: reader, defaults: defaults, logger: logger}
}

// Current re-fetches coefficients and remembers them; on failure it degrades to the last
// known set and then to defaults. It never fails.
func (b *CoefficientBook) Current(ctx context.Context) (Coefficients, Origin) {
	if b.reader != nil {
		c, err := b.reader.GetCoefficients(ctx)
		if err == nil && c.Validate() == nil {
			b.Remember(c)
			return c, OriginRemote
		}
		if err == nil {
			err = c.Validate()
		}
		b.logger.Warn().Err(err).Msg("coefficients_fetch_failed")
	}
	if last, ok := b.LastKnown(); ok {
		return last, OriginLastKnown
	}
	return b.defaults, OriginDefault
}

// Remember records c as the most recent authoritative coefficients.
func (b *CoefficientBook) Remember(c Coefficients) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &c
}

// LastKnown returns the remembered coefficients if any were seen.
func (b *CoefficientBook) LastKnown() (Coefficients, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Coefficients{}, false
	}
	return *b.last, true
}

// Defaults exposes the configured default coefficients.
func (b *CoefficientBook) Defaults() Coefficients {
	return b.defaults
}

// LocalSource prices deliveries in-process with the shared formula.
type LocalSource struct {
	Book *CoefficientBook
}

// Name implements Source.
func (LocalSource) Name() string { return "local" }

// QuoteDelivery implements Source. It cannot fail.
func (s LocalSource) QuoteDelivery(ctx context.Context, distance, weight float64) (float64, error) {
	c := DefaultCoefficients()
	if s.Book != nil {
		c, _ = s.Book.Current(ctx)
	}
	return DeliveryPrice(distance, weight, c), nil
}
