package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE and payload zones must load on hosts without zoneinfo

	"github.com/joho/godotenv"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

type AppConfig struct {
	Port string

	// Open-Meteo client.
	OpenMeteoBaseURL string
	HTTPTimeout      time.Duration

	// FetchInterval controls how often the scheduler warms WarmCities.
	FetchInterval time.Duration
	WarmCities    []string

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per city (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)
	CacheTTL        time.Duration // reuse a snapshot younger than this (0 = always fetch)

	// Location is the zone "today" is computed in when a payload names none.
	Location *time.Location

	GeolocationTimeout time.Duration // 0 waits until the client answers
	GeocoderAPIKey     string

	SessionIdleTTL time.Duration // 0 keeps sessions until deleted
	SessionMax     int           // 0 = unlimited

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first if present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:             getenvDefault("PORT", "8080"),
		OpenMeteoBaseURL: getenvDefault("OPEN_METEO_BASE_URL", defaultOpenMeteoURL),
		StoreMaxHistory:  getenvInt("STORE_MAX_HISTORY", 96), // roughly 24h at 15-minute intervals
		GeocoderAPIKey:   os.Getenv("GEOCODER_API_KEY"),
		SessionMax:       getenvInt("SESSION_MAX", 10000),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		LogFormat:        getenvDefault("LOG_FORMAT", "json"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"FETCH_INTERVAL", "15m", &cfg.FetchInterval},
		{"STORE_MAX_AGE", "24h", &cfg.StoreMaxAge},
		{"CACHE_TTL", "10m", &cfg.CacheTTL},
		{"GEOLOCATION_TIMEOUT", "0s", &cfg.GeolocationTimeout},
		{"SESSION_IDLE_TTL", "30m", &cfg.SessionIdleTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = v
	}

	loc, err := time.LoadLocation(getenvDefault("TIMEZONE", "Asia/Bangkok"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.WarmCities = splitList(getenvDefault("WARM_CITIES", "Bangkok"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
