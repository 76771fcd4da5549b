package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "OPEN_METEO_BASE_URL", "HTTP_TIMEOUT", "FETCH_INTERVAL", "WARM_CITIES",
	"STORE_MAX_HISTORY", "STORE_MAX_AGE", "CACHE_TTL", "TIMEZONE", "GEOLOCATION_TIMEOUT",
	"GEOCODER_API_KEY", "LOG_LEVEL", "LOG_FORMAT", "SESSION_IDLE_TTL", "SESSION_MAX",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, defaultOpenMeteoURL, cfg.OpenMeteoBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.FetchInterval)
	assert.Equal(t, []string{"Bangkok"}, cfg.WarmCities)
	assert.Equal(t, 96, cfg.StoreMaxHistory)
	assert.Equal(t, 24*time.Hour, cfg.StoreMaxAge)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "Asia/Bangkok", cfg.Location.String())
	assert.Zero(t, cfg.GeolocationTimeout)
	assert.Empty(t, cfg.GeocoderAPIKey)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 10000, cfg.SessionMax)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPEN_METEO_BASE_URL", "http://localhost:1234/v1/forecast")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("FETCH_INTERVAL", "5m")
	t.Setenv("WARM_CITIES", " Tokyo, ,Chiang Mai ,")
	t.Setenv("STORE_MAX_HISTORY", "10")
	t.Setenv("CACHE_TTL", "0s")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("GEOLOCATION_TIMEOUT", "20s")
	t.Setenv("GEOCODER_API_KEY", "secret")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SESSION_IDLE_TTL", "5m")
	t.Setenv("SESSION_MAX", "50")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:1234/v1/forecast", cfg.OpenMeteoBaseURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.FetchInterval)
	assert.Equal(t, []string{"Tokyo", "Chiang Mai"}, cfg.WarmCities)
	assert.Equal(t, 10, cfg.StoreMaxHistory)
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 20*time.Second, cfg.GeolocationTimeout)
	assert.Equal(t, "secret", cfg.GeocoderAPIKey)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 50, cfg.SessionMax)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"FETCH_INTERVAL":      "often",
		"HTTP_TIMEOUT":        "-1s",
		"STORE_MAX_AGE":       "1 day",
		"CACHE_TTL":           "x",
		"GEOLOCATION_TIMEOUT": "soon",
		"SESSION_IDLE_TTL":    "-5m",
		"TIMEZONE":            "Mars/Olympus_Mons",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnv_BadIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_MAX_HISTORY", "lots")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.StoreMaxHistory)
}
