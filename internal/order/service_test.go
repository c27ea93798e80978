package order_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/order"
	"github.com/noah-isme/jwfoods/internal/store"
)

func newService(t *testing.T) (*order.Service, *store.Store) {
	t.Helper()
	st := store.New(store.NewMemoryBackend())
	svc, err := order.NewService(st)
	require.NoError(t, err)
	return svc, st
}

func ctxFor(sid string) context.Context {
	return common.WithSessionID(context.Background(), sid)
}

func placed(id string, day int) order.Order {
	return order.Order{
		ID:           id,
		Total:        10,
		DeliveryDays: 3,
		OrderDate:    time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC),
		Status:       order.StatusProcessing,
	}
}

func TestRecordKeepsNewestFirst(t *testing.T) {
	svc, _ := newService(t)
	ctx := ctxFor("s1")
	require.NoError(t, svc.Record(ctx, placed("a", 1)))
	require.NoError(t, svc.Record(ctx, placed("b", 2)))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "b", history[0].ID)
	require.Equal(t, "a", history[1].ID)

	last, err := svc.Last(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", last.ID)
}

func TestHistorySeededFromLastOrder(t *testing.T) {
	svc, st := newService(t)
	ctx := ctxFor("s1")

	// a last order left without history or id
	require.NoError(t, store.NewKey[order.Order]("lastOrder").Set(ctx, st.ForSession("s1"), placed("", 5)))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotEmpty(t, history[0].ID)

	last, err := svc.Last(ctx)
	require.NoError(t, err)
	require.Equal(t, history[0].ID, last.ID)
}

func TestSelectAndGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := ctxFor("s1")
	require.NoError(t, svc.Record(ctx, placed("a", 1)))
	require.NoError(t, svc.Record(ctx, placed("b", 2)))

	o, err := svc.Select(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), o.EstimatedDelivery())

	last, err := svc.Last(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", last.ID)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNoOrder)
}

func TestEmptySession(t *testing.T) {
	svc, _ := newService(t)
	history, err := svc.History(ctxFor("s1"))
	require.NoError(t, err)
	require.Empty(t, history)

	_, err = svc.Last(ctxFor("s1"))
	require.ErrorIs(t, err, order.ErrNoOrder)
}

func TestHandlers(t *testing.T) {
	svc, _ := newService(t)
	require.NoError(t, svc.Record(ctxFor("s1"), placed("a", 1)))
	require.NoError(t, svc.Record(ctxFor("s1"), placed("b", 2)))

	r := chi.NewRouter()
	r.Route("/orders", (&order.Handler{Svc: svc}).Routes)
	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		r.ServeHTTP(rec, req.WithContext(ctxFor("s1")))
		return rec
	}

	rec := do(http.MethodGet, "/orders?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"has_more":true`)
	require.Contains(t, rec.Body.String(), `"id":"b"`)

	rec = do(http.MethodPost, "/orders/a/select")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/orders/last")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"a"`)
	require.Contains(t, rec.Body.String(), `"total":"$10.00"`)

	rec = do(http.MethodGet, "/orders/zzz")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
