package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/jwfoods/internal/health"
)

type stubChecker struct {
	storeErr  error
	remoteErr error
}

func (s stubChecker) PingStore(_ context.Context, _ time.Duration) error {
	return s.storeErr
}

func (s stubChecker) PingRemote(_ context.Context, _ time.Duration) error {
	return s.remoteErr
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}, StoreTimeout: 50 * time.Millisecond, RemoteTimeout: 50 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["store"] != "ok" || status["remote"] != "ok" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestReadyStoreFailure(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{storeErr: errors.New("redis down")}, StoreTimeout: 10 * time.Millisecond, RemoteTimeout: 10 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}

func TestReadyRemoteDegraded(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{remoteErr: errors.New("remote down")}, StoreTimeout: 10 * time.Millisecond, RemoteTimeout: 10 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 while pricing falls back locally, got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["store"] != "ok" || status["remote"] != "degraded: remote down" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestProbesApplyTimeout(t *testing.T) {
	deps := health.Probes{Remote: slowPinger{}}
	start := time.Now()
	err := deps.PingRemote(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("remote ping ignored timeout")
	}
	if err := deps.PingStore(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("nil store pinger should pass: %v", err)
	}
}
