package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/delivery"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/store"
)

type downSource struct{}

func (downSource) Name() string { return "remote" }

func (downSource) QuoteDelivery(context.Context, float64, float64) (float64, error) {
	return 0, errors.New("dial tcp: connection refused")
}

type recordingEmitter struct {
	topics []string
}

func (r *recordingEmitter) Publish(_ context.Context, topic, _ string, _ any) {
	r.topics = append(r.topics, topic)
}

func newService(t *testing.T, opts ...pricing.QuoterOption) (*delivery.Service, *recordingEmitter) {
	t.Helper()
	emitter := &recordingEmitter{}
	book := pricing.NewCoefficientBook(nil, pricing.DefaultCoefficients(), zerolog.Nop())
	svc, err := delivery.NewService(delivery.ServiceConfig{
		Store:  store.New(store.NewMemoryBackend()),
		Quoter: pricing.NewQuoter(book, opts...),
		Events: emitter,
	})
	require.NoError(t, err)
	return svc, emitter
}

func withSession(r *http.Request, sid string) *http.Request {
	return r.WithContext(common.WithSessionID(r.Context(), sid))
}

func newRouter(svc *delivery.Service) http.Handler {
	h := delivery.NewHandler(delivery.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Route("/delivery", h.Routes)
	r.Route("/admin", h.AdminRoutes)
	return r
}

func TestQuoteStoresAndFallsBack(t *testing.T) {
	svc, emitter := newService(t, pricing.WithPrimary(downSource{}))
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/delivery/quote", strings.NewReader(`{"distance":"25","weight":"3"}`)), "s1")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Price   float64 `json:"price"`
			Display string  `json:"display"`
			Source  string  `json:"source"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 18.5, body.Data.Price)
	require.Equal(t, "$18.50", body.Data.Display)
	require.Equal(t, "local", body.Data.Source)
	require.Equal(t, []string{events.TopicDeliveryQuoted}, emitter.topics)

	q, ok, err := svc.Current(common.WithSessionID(context.Background(), "s1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 18.5, q.Price)

	_, ok, err = svc.Current(common.WithSessionID(context.Background(), "s2"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestQuoteValidation(t *testing.T) {
	svc, emitter := newService(t)
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodPost, "/delivery/quote", strings.NewReader(`{"distance":"25"}`)), "s1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "distance and weight required")
	require.Empty(t, emitter.topics)
}

func TestCurrentAndReset(t *testing.T) {
	svc, _ := newService(t)
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/delivery/quote", nil), "s1"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	_, err := svc.Quote(common.WithSessionID(context.Background(), "s1"), pricing.NewTrip(10, 1))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/delivery/quote", nil), "s1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodDelete, "/delivery/quote", nil), "s1"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, ok, err := svc.Current(common.WithSessionID(context.Background(), "s1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBands(t *testing.T) {
	svc, _ := newService(t)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delivery/bands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Over 100 km")
}

func TestAdminCoefficients(t *testing.T) {
	svc, emitter := newService(t)
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/coefficients", strings.NewReader(`{"distance_coefficient":0,"weight_coefficient":5}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/coefficients", strings.NewReader(`{"weight_coefficient":5}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "distance_coefficient")
	require.Empty(t, emitter.topics)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/coefficients", strings.NewReader(`{"distance_coefficient":1,"weight_coefficient":1}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{events.TopicCoefficientsUpdated}, emitter.topics)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/coefficients", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"distance_coefficient":1,"weight_coefficient":1}}`, rec.Body.String())

	q, err := svc.Quote(common.WithSessionID(context.Background(), "s1"), pricing.NewTrip(10, 2))
	require.NoError(t, err)
	require.Equal(t, 12.0, q.Price)
}

func TestQuoteWithoutSession(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Quote(context.Background(), pricing.NewTrip(1, 1))
	require.ErrorIs(t, err, store.ErrNoSession)
}
