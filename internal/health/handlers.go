// Package health serves liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips readiness, e.g. false while the server drains on shutdown.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be checked for readiness.
type Checker interface {
	PingStore(ctx context.Context, timeout time.Duration) error
	PingRemote(ctx context.Context, timeout time.Duration) error
}

// Pinger is anything with a context-aware Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probes adapts the session store backend and the external service client to Checker.
type Probes struct {
	Store  Pinger
	Remote Pinger
}

// PingStore implements Checker.
func (p Probes) PingStore(ctx context.Context, timeout time.Duration) error {
	return ping(ctx, p.Store, timeout)
}

// PingRemote implements Checker.
func (p Probes) PingRemote(ctx context.Context, timeout time.Duration) error {
	return ping(ctx, p.Remote, timeout)
}

func ping(ctx context.Context, p Pinger, timeout time.Duration) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	StoreTimeout  time.Duration
	RemoteTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Only the session store gates it: when the external service is
// down pricing falls back to the local formula, so remote is reported as degraded with 200.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	status := map[string]string{"store": "ok", "remote": "ok"}
	storeOK := true
	if err := h.Checker.PingStore(ctx, h.storeTimeout()); err != nil {
		status["store"] = err.Error()
		storeOK = false
	}
	if err := h.Checker.PingRemote(ctx, h.remoteTimeout()); err != nil {
		status["remote"] = "degraded: " + err.Error()
	}
	serving := ready.Load()
	if !serving {
		status["server"] = "shutting down"
	}
	w.Header().Set("Content-Type", "application/json")
	if storeOK && serving {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) storeTimeout() time.Duration {
	if h.StoreTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.StoreTimeout
}

func (h Handler) remoteTimeout() time.Duration {
	if h.RemoteTimeout <= 0 {
		return 2 * time.Second
	}
	return h.RemoteTimeout
}
