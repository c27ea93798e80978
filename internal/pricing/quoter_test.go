package pricing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
)

// fakeRemote mirrors the external service: it owns coefficients and prices with them.
type fakeRemote struct {
	mu          sync.Mutex
	coeffs      pricing.Coefficients
	down        bool
	calcDown    bool
	writes      int
	quoteCalls  int
	updateError error
}

func (f *fakeRemote) Name() string { return "remote" }

func (f *fakeRemote) QuoteDelivery(_ context.Context, distance, weight float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	if f.down || f.calcDown {
		return 0, errors.New("connection refused")
	}
	return pricing.DeliveryPrice(distance, weight, f.coeffs), nil
}

func (f *fakeRemote) GetCoefficients(context.Context) (pricing.Coefficients, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return pricing.Coefficients{}, errors.New("connection refused")
	}
	return f.coeffs, nil
}

func (f *fakeRemote) UpdateCoefficients(_ context.Context, c pricing.Coefficients) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateError != nil {
		return "", f.updateError
	}
	if f.down {
		return "", errors.New("connection refused")
	}
	f.writes++
	f.coeffs = c
	return "Coefficients updated successfully", nil
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeRemote) setCalcDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calcDown = down
}

func newQuoter(remote *fakeRemote) *pricing.Quoter {
	book := pricing.NewCoefficientBook(remote, pricing.DefaultCoefficients(), zerolog.Nop())
	return pricing.NewQuoter(book, pricing.WithPrimary(remote), pricing.WithWriter(remote))
}

func TestQuoterUsesPrimary(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.Coefficients{DistanceCoefficient: 1, WeightCoefficient: 1}}
	quote, err := newQuoter(remote).QuoteDelivery(context.Background(), pricing.NewTrip(25, 3))
	require.NoError(t, err)
	require.Equal(t, 28.0, quote.Price)
	require.Equal(t, "remote", quote.Source)
}

func TestQuoterFallbackMatchesFormula(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.DefaultCoefficients(), down: true}
	quote, err := newQuoter(remote).QuoteDelivery(context.Background(), pricing.NewTrip(25, 3))
	require.NoError(t, err)
	require.Equal(t, "local", quote.Source)

	expected, err := pricing.QuoteDelivery(pricing.NewTrip(25, 3), pricing.DefaultCoefficients())
	require.NoError(t, err)
	require.Equal(t, expected, quote.Price)
}

func TestQuoterRemoteAndLocalAgree(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.Coefficients{DistanceCoefficient: 0.37, WeightCoefficient: 2.9}}
	q := newQuoter(remote)
	ctx := context.Background()

	for _, trip := range []pricing.Trip{pricing.NewTrip(5, 0.1), pricing.NewTrip(150, 12.3), pricing.NewTrip(0, 7)} {
		remote.setCalcDown(false)
		viaRemote, err := q.QuoteDelivery(ctx, trip)
		require.NoError(t, err)

		remote.setCalcDown(true)
		viaLocal, err := q.QuoteDelivery(ctx, trip)
		require.NoError(t, err)

		require.Equal(t, "remote", viaRemote.Source)
		require.Equal(t, "local", viaLocal.Source)
		require.Equal(t, viaRemote.Price, viaLocal.Price)
	}
}

func TestQuoterValidationSkipsSources(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.DefaultCoefficients()}
	_, err := newQuoter(remote).QuoteDelivery(context.Background(), pricing.Trip{Distance: pricing.NumberOf(10)})
	require.True(t, common.IsValidation(err))
	require.Zero(t, remote.quoteCalls)
}

func TestUpdateCoefficientsRejectsInvalid(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.DefaultCoefficients()}
	q := newQuoter(remote)

	for _, c := range []pricing.Coefficients{{DistanceCoefficient: 0, WeightCoefficient: 5}, {DistanceCoefficient: -1, WeightCoefficient: 2}} {
		_, err := q.UpdateCoefficients(context.Background(), c)
		require.True(t, common.IsValidation(err))
	}
	require.Zero(t, remote.writes)
	require.Equal(t, pricing.DefaultCoefficients(), remote.coeffs)
	_, seen := q.Book().LastKnown()
	require.False(t, seen)
}

func TestUpdateCoefficientsUsedByNextLocalQuote(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.DefaultCoefficients()}
	q := newQuoter(remote)
	ctx := context.Background()

	msg, err := q.UpdateCoefficients(ctx, pricing.Coefficients{DistanceCoefficient: 1, WeightCoefficient: 3})
	require.NoError(t, err)
	require.Equal(t, "Coefficients updated successfully", msg)

	remote.setDown(true)
	quote, err := q.QuoteDelivery(ctx, pricing.NewTrip(10, 2))
	require.NoError(t, err)
	require.Equal(t, "local", quote.Source)
	require.Equal(t, 16.0, quote.Price)
}

func TestUpdateCoefficientsRemoteFailure(t *testing.T) {
	remote := &fakeRemote{coeffs: pricing.DefaultCoefficients(), updateError: errors.New("boom")}
	_, err := newQuoter(remote).UpdateCoefficients(context.Background(), pricing.Coefficients{DistanceCoefficient: 1, WeightCoefficient: 1})
	require.True(t, common.IsRemote(err))
}

func TestCoefficientBookFallsBackToDefaults(t *testing.T) {
	remote := &fakeRemote{down: true}
	book := pricing.NewCoefficientBook(remote, pricing.DefaultCoefficients(), zerolog.Nop())
	c, origin := book.Current(context.Background())
	require.Equal(t, pricing.OriginDefault, origin)
	require.Equal(t, pricing.DefaultCoefficients(), c)

	book.Remember(pricing.Coefficients{DistanceCoefficient: 2, WeightCoefficient: 2})
	c, origin = book.Current(context.Background())
	require.Equal(t, pricing.OriginLastKnown, origin)
	require.Equal(t, 2.0, c.DistanceCoefficient)
}

func TestCoefficientsSurfacesRemoteError(t *testing.T) {
	remote := &fakeRemote{down: true}
	_, err := newQuoter(remote).Coefficients(context.Background())
	require.True(t, common.IsRemote(err))
}
