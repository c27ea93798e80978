package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 70.41.3.18"}, "192.0.2.1:1234", "203.0.113.1"},
		{"real ip header", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.1:1234", "198.51.100.2"},
		{"garbage forwarded falls through", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.4"}, "192.0.2.1:1234", "198.51.100.4"},
		{"remote addr", nil, "198.51.100.3:8080", "198.51.100.3"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", nil, "198.51.100.5", "198.51.100.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remoteAddr
			require.Equal(t, tt.want, ClientIP(req))
		})
	}
	require.Empty(t, ClientIP(nil))
}
