package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/city"
)

const samplePayload = `{
  "latitude": 13.75,
  "longitude": 100.5,
  "timezone": "Asia/Bangkok",
  "utc_offset_seconds": 25200,
  "current_weather": {"time": "2024-03-10T14:00", "temperature": 33.1, "windspeed": 11.2, "winddirection": 190, "weathercode": 2},
  "hourly": {
    "time": ["2024-03-10T00:00", "2024-03-10T01:00"],
    "temperature_2m": [27.4, null],
    "relative_humidity_2m": [80, 82],
    "precipitation": [0, 0.1],
    "windspeed_10m": [5.1, 4.8]
  },
  "daily": {
    "time": ["2024-03-10"],
    "temperature_2m_max": [34.2],
    "temperature_2m_min": [25.9],
    "precipitation_sum": [0.4],
    "sunrise": ["2024-03-10T06:31"],
    "sunset": ["2024-03-10T18:28"],
    "weathercode": [3]
  }
}`

var bangkok = city.Coordinates{Latitude: 13.7563, Longitude: 100.5018}

func testProvider(baseURL string) *OpenMeteoProvider {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	p := NewOpenMeteoProvider(&http.Client{Timeout: 2 * time.Second}, baseURL, clock, time.UTC)
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return p
}

func TestOpenMeteo_FetchHistory_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "13.7563", q.Get("latitude"))
		assert.Equal(t, "100.5018", q.Get("longitude"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m,precipitation,windspeed_10m", q.Get("hourly"))
		assert.Equal(t, "temperature_2m_max,temperature_2m_min,precipitation_sum,sunrise,sunset", q.Get("daily"))
		assert.Equal(t, "true", q.Get("current_weather"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Equal(t, "2024-03-04", q.Get("start_date"))
		assert.Equal(t, "2024-03-10", q.Get("end_date"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	payload, err := testProvider(srv.URL).FetchHistory(context.Background(), bangkok)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Bangkok", payload.Timezone)
	require.NotNil(t, payload.CurrentWeather)
	assert.Equal(t, 33.1, payload.CurrentWeather.Temperature)
	require.NotNil(t, payload.Hourly)
	require.Len(t, payload.Hourly.Temperature2m, 2)
	assert.Equal(t, 27.4, *payload.Hourly.Temperature2m[0])
	assert.Nil(t, payload.Hourly.Temperature2m[1], "JSON null decodes to nil")
}

func TestOpenMeteo_FetchForecast_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "temperature_2m_max,temperature_2m_min,precipitation_sum,weathercode,sunrise,sunset", q.Get("daily"))
		assert.Equal(t, "2024-03-10", q.Get("start_date"))
		assert.Equal(t, "2024-03-16", q.Get("end_date"))
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	payload, err := testProvider(srv.URL).FetchForecast(context.Background(), bangkok)
	require.NoError(t, err)
	require.NotNil(t, payload.Daily)
	require.Len(t, payload.Daily.WeatherCode, 1)
	assert.Equal(t, 3, *payload.Daily.WeatherCode[0])
}

func TestOpenMeteo_FetchDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "temperature_2m_max,precipitation_sum", q.Get("daily"))
		assert.Empty(t, q.Get("start_date"))
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	daily, err := testProvider(srv.URL).FetchDaily(context.Background(), bangkok)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-10"}, daily.Time)
}

func TestOpenMeteo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchHistory(context.Background(), bangkok)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenMeteo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchHistory(context.Background(), bangkok)
	require.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestOpenMeteo_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchHistory(context.Background(), bangkok)
	require.ErrorIs(t, err, errUnexpected)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenMeteo_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hourly": [`))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchHistory(context.Background(), bangkok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestDoRequestWithResilience_RequiresClient(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), HTTPClientConfig{Backoff: DefaultBackoff}, newCircuitBreaker("test"), nil)
	require.ErrorIs(t, err, errNoHTTPClient)

	_, err = doRequestWithResilience(context.Background(), HTTPClientConfig{Client: http.DefaultClient}, newCircuitBreaker("test"), nil)
	require.ErrorIs(t, err, errInvalidConfig)
}
