package main

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
)

func fakeService(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var puts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/coefficients":
			_, _ = w.Write([]byte(`{"distance_coefficient":1,"weight_coefficient":3}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/coefficients":
			var body map[string]float64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			puts = append(puts, r.URL.Path)
			_, _ = w.Write([]byte(`{"message":"Coefficients updated successfully"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/calculate":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &puts
}

func TestGet(t *testing.T) {
	srv, _ := fakeService(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-base", srv.URL, "get"}, &out, zerolog.Nop()))
	require.JSONEq(t, `{"distance_coefficient":1,"weight_coefficient":3}`, out.String())
}

func TestSetValidatesBeforeWriting(t *testing.T) {
	srv, puts := fakeService(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-base", srv.URL, "set", "-distance", "0", "-weight", "2"}, &out, zerolog.Nop())
	require.True(t, common.IsValidation(err))
	require.Empty(t, *puts)

	require.NoError(t, run(context.Background(), []string{"-base", srv.URL, "set", "-distance", "0.7", "-weight", "2"}, &out, zerolog.Nop()))
	require.Len(t, *puts, 1)
	require.Contains(t, out.String(), "Coefficients updated successfully")
}

func TestQuoteFallsBackToLocal(t *testing.T) {
	srv, _ := fakeService(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-base", srv.URL, "-timeout", "1s", "quote", "-distance", "10", "-weight", "2"}, &out, zerolog.Nop()))

	var body struct {
		Quote struct {
			Price  float64 `json:"price"`
			Source string  `json:"source"`
		} `json:"quote"`
		Display string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	require.Equal(t, "local", body.Quote.Source)
	require.Equal(t, 16.0, body.Quote.Price)
	require.Equal(t, "$16.00", body.Display)
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run(context.Background(), []string{"-base", "http://x"}, &out, zerolog.Nop()))
	require.Error(t, run(context.Background(), []string{"-base", "http://x", "frobnicate"}, &out, zerolog.Nop()))
	require.Error(t, run(context.Background(), []string{"-base", "", "get"}, &out, zerolog.Nop()))
}
