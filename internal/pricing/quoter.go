package pricing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/obs"
)

// Quoter prices deliveries through a primary Source and degrades to the local formula on
// any primary failure, so quoting never blocks a customer.
type Quoter struct {
	primary Source
	local   LocalSource
	book    *CoefficientBook
	writer  CoefficientWriter
	logger  zerolog.Logger
}

// QuoterOption customises a Quoter.
type QuoterOption func(*Quoter)

// WithPrimary sets the preferred pricing source.
func WithPrimary(src Source) QuoterOption {
	return func(q *Quoter) { q.primary = src }
}

// WithWriter sets where coefficient updates are persisted.
func WithWriter(w CoefficientWriter) QuoterOption {
	return func(q *Quoter) { q.writer = w }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger zerolog.Logger) QuoterOption {
	return func(q *Quoter) { q.logger = logger }
}

// NewQuoter builds a Quoter around book. Without a primary every quote is local.
func NewQuoter(book *CoefficientBook, opts ...QuoterOption) *Quoter {
	if book == nil {
		book = NewCoefficientBook(nil, DefaultCoefficients(), zerolog.Nop())
	}
	q := &Quoter{book: book, local: LocalSource{Book: book}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Book returns the coefficient book backing local quotes.
func (q *Quoter) Book() *CoefficientBook {
	return q.book
}

// QuoteDelivery validates trip and returns a quote tagged with the source that priced it.
func (q *Quoter) QuoteDelivery(ctx context.Context, trip Trip) (DeliveryQuote, error) {
	distance, weight, err := trip.Validate()
	if err != nil {
		return DeliveryQuote{}, err
	}
	quote := DeliveryQuote{Distance: distance, Weight: weight}

	if q.primary != nil {
		price, err := q.primary.QuoteDelivery(ctx, distance, weight)
		if err == nil {
			quote.Price, quote.Source = price, q.primary.Name()
			obs.RecordQuote(quote.Source)
			return quote, nil
		}
		obs.RecordFallback("calculate")
		q.loggerFor(ctx).Warn().Err(err).
			Str("source", q.primary.Name()).
			Float64("distance", distance).
			Float64("weight", weight).
			Msg("pricing_fallback")
	}

	price, _ := q.local.QuoteDelivery(ctx, distance, weight)
	quote.Price, quote.Source = price, q.local.Name()
	obs.RecordQuote(quote.Source)
	return quote, nil
}

// UpdateCoefficients validates c, persists it through the writer and remembers it so the
// next quote on either path uses it. Nothing is written when validation fails.
func (q *Quoter) UpdateCoefficients(ctx context.Context, c Coefficients) (string, error) {
	if err := c.Validate(); err != nil {
		obs.RecordCoefficientUpdate("invalid")
		return "", err
	}
	if q.writer == nil {
		q.book.Remember(c)
		obs.RecordCoefficientUpdate("ok")
		return "Coefficients updated", nil
	}
	msg, err := q.writer.UpdateCoefficients(ctx, c)
	if err != nil {
		obs.RecordCoefficientUpdate("remote_error")
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", common.NewRemoteError("failed to update coefficients", err)
	}
	q.book.Remember(c)
	obs.RecordCoefficientUpdate("ok")
	return msg, nil
}

// Coefficients reads the authoritative coefficients, surfacing remote failures. A successful
// read is remembered for later local quotes.
func (q *Quoter) Coefficients(ctx context.Context) (Coefficients, error) {
	if q.book.reader == nil {
		c, _ := q.book.Current(ctx)
		return c, nil
	}
	c, err := q.book.reader.GetCoefficients(ctx)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return Coefficients{}, err
		}
		return Coefficients{}, common.NewRemoteError("failed to fetch current coefficients", err)
	}
	q.book.Remember(c)
	return c, nil
}

func (q *Quoter) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &q.logger
}
