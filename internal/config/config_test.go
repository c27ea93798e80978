package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REMOTE_API_BASE_URL": "http://pricing.local/",
		"SESSION_SECRET":      "test-secret",
		"STORE_DRIVER":        "",
		"PRICING_TAX_RATE":    "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "http://pricing.local", cfg.RemoteBaseURL)
	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.InDelta(t, 0.13, cfg.Pricing.TaxRate, 1e-9)
	require.InDelta(t, 0.5, cfg.Pricing.DefaultDistanceCoefficient, 1e-9)
	require.InDelta(t, 2.0, cfg.Pricing.DefaultWeightCoefficient, 1e-9)
	require.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadRequiresRemoteBaseURL(t *testing.T) {
	env := baseEnv()
	env["REMOTE_API_BASE_URL"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "REMOTE_API_BASE_URL is required")
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	env := baseEnv()
	env["SESSION_SECRET"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "SESSION_SECRET is required")
}

func TestLoadRedisDriverNeedsURL(t *testing.T) {
	env := baseEnv()
	env["STORE_DRIVER"] = "redis"
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "REDIS_URL is required")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	env := baseEnv()
	env["STORE_DRIVER"] = "etcd"
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadPricingOverrides(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_RATE"] = "0.05"
	env["PRICING_DEFAULT_WEIGHT_COEFFICIENT"] = "1.25"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.InDelta(t, 0.05, cfg.Pricing.TaxRate, 1e-9)
	require.InDelta(t, 1.25, cfg.Pricing.DefaultWeightCoefficient, 1e-9)
}
