package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/events"
)

type captured struct {
	topic string
	entry Entry
}

type captureEmitter struct{ got []captured }

func (c *captureEmitter) Publish(_ context.Context, topic, _ string, payload any) {
	c.got = append(c.got, captured{topic: topic, entry: payload.(Entry)})
}

func TestMiddlewareRecordsMutations(t *testing.T) {
	var logs bytes.Buffer
	emitter := &captureEmitter{}
	rec := Recorder{
		Logger: zerolog.New(&logs),
		Events: emitter,
		Actor:  func(*http.Request) Actor { return Actor{Kind: ActorKindUser, UserID: "42"} },
	}
	handler := rec.Middleware("coefficients.update")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/admin/coefficients", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req = req.WithContext(common.WithSessionID(req.Context(), "sess"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, emitter.got, 1)
	require.Equal(t, events.TopicAuditRecorded, emitter.got[0].topic)
	require.Equal(t, "coefficients.update", emitter.got[0].entry.Action)
	require.Equal(t, "42", emitter.got[0].entry.Actor.UserID)
	require.Equal(t, "sess", emitter.got[0].entry.SessionID)
	require.Equal(t, "203.0.113.9", emitter.got[0].entry.ClientIP)

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	require.Equal(t, "audit", line["message"])
	require.Equal(t, float64(http.StatusOK), line["status"])
}

func TestMiddlewareSkipsEventsForReadsAndFailures(t *testing.T) {
	emitter := &captureEmitter{}
	rec := Recorder{Logger: zerolog.Nop(), Events: emitter}
	failing := rec.Middleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/admin/coefficients", nil))

	ok := rec.Middleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/coefficients", nil))

	require.Empty(t, emitter.got)
}

func TestBuildAction(t *testing.T) {
	require.Equal(t, "PUT /admin/coefficients", buildAction("", "put", "/admin/coefficients"))
	require.Equal(t, "GET /", buildAction(" ", "GET", ""))
	require.Equal(t, "explicit", buildAction("explicit", "GET", "/x"))
}
