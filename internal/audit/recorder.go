// Package audit records administrative actions such as coefficient changes.
package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes who performed the action.
type Actor struct {
	Kind   ActorKind `json:"kind"`
	UserID string    `json:"userId,omitempty"`
}

// Entry is one audited request.
type Entry struct {
	Actor     Actor     `json:"actor"`
	Action    string    `json:"action"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	Status    int       `json:"status"`
	SessionID string    `json:"sessionId,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	ClientIP  string    `json:"clientIp,omitempty"`
	At        time.Time `json:"at"`
}

// Recorder writes audit entries to the log and, for successful mutations, to the event bus.
type Recorder struct {
	Logger zerolog.Logger
	Events events.Emitter
	Actor  func(*http.Request) Actor
	Now    func() time.Time
}

// Record emits e.
func (r Recorder) Record(ctx context.Context, e Entry) {
	r.Logger.Info().
		Str("actor_kind", string(e.Actor.Kind)).
		Str("actor_id", e.Actor.UserID).
		Str("action", e.Action).
		Str("route", e.Route).
		Int("status", e.Status).
		Str("session_id", e.SessionID).
		Str("request_id", e.RequestID).
		Str("client_ip", e.ClientIP).
		Msg("audit")
	if r.Events != nil && e.Status < 400 && e.Method != http.MethodGet {
		r.Events.Publish(ctx, events.TopicAuditRecorded, e.Actor.UserID, e)
	}
}

// Middleware records every request through the wrapped handler under action. An empty action
// is derived from the method and route pattern.
func (r Recorder) Middleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			route := obs.RouteFor(req, req.URL.Path)
			sid, _ := common.SessionID(req.Context())
			r.Record(req.Context(), Entry{
				Actor:     r.actor(req),
				Action:    buildAction(action, req.Method, route),
				Method:    req.Method,
				Route:     route,
				Status:    recorder.Status(),
				SessionID: sid,
				RequestID: middleware.GetReqID(req.Context()),
				ClientIP:  common.ClientIP(req),
				At:        r.now(),
			})
		})
	}
}

func (r Recorder) actor(req *http.Request) Actor {
	if r.Actor != nil {
		return r.Actor(req)
	}
	return Actor{Kind: ActorKindAnonymous}
}

func (r Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(method) + " " + route
}
