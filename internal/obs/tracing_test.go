package obs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(TracingConfig{
		Environment: "staging",
		Attributes:  map[string]string{"jwfoods.store_driver": "redis", "jwfoods.a": "1"},
	})
	got := map[string]string{}
	var order []string
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.Emit()
		order = append(order, string(kv.Key))
	}
	require.Equal(t, "jwfoods-api", got["service.name"])
	require.Equal(t, "jwfoods", got["service.namespace"])
	require.Equal(t, "redis", got["jwfoods.store_driver"])
	require.Equal(t, []string{"jwfoods.a", "jwfoods.store_driver"}, order[len(order)-2:])
}

func TestSamplingRatio(t *testing.T) {
	require.Equal(t, 1.0, samplingRatio(0))
	require.Equal(t, 1.0, samplingRatio(3))
	require.Equal(t, 0.25, samplingRatio(0.25))
}

func TestSQLHelpers(t *testing.T) {
	require.Equal(t, "SELECT", sqlVerb("  select value from session_state"))
	require.Equal(t, "QUERY", sqlVerb("   "))
	long := "INSERT " + strings.Repeat("x", 400)
	require.Len(t, truncateSQL(long), maxStatementLen+3)
	require.Equal(t, "DELETE 1", truncateSQL(" DELETE 1 "))
}
