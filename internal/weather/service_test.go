package weather_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	bangkok = city.City{Name: "Bangkok", Region: "TH", Latitude: 13.7563, Longitude: 100.5018}
	tokyo   = city.City{Name: "Tokyo", Region: "Tokyo", Latitude: 35.6762, Longitude: 139.6503}
	now     = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
)

func fp(v float64) *float64 { return &v }

// fakeSource serves canned payloads and counts calls.
type fakeSource struct {
	mu          sync.Mutex
	err         error
	historyHits atomic.Int32
	forecastHit atomic.Int32
	dailyHits   atomic.Int32
	// gate, when set, blocks both fetches until both have started.
	gate *sync.WaitGroup
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) wait() {
	if f.gate != nil {
		f.gate.Done()
		f.gate.Wait()
	}
}

func (f *fakeSource) FetchHistory(_ context.Context, pos city.Coordinates) (*weather.Payload, error) {
	f.historyHits.Add(1)
	f.wait()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &weather.Payload{
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		Timezone:       "UTC",
		CurrentWeather: &weather.CurrentWeather{Temperature: 31, WindSpeed: 9, WindDirection: 180, WeatherCode: 2},
		Hourly: &weather.RawHourlySeries{
			Time:               []string{"2024-01-03T06:00", "2024-01-03T12:00"},
			Temperature2m:      []*float64{fp(26), fp(32)},
			RelativeHumidity2m: []*float64{fp(80), fp(55)},
		},
		Daily: &weather.RawDailySeries{
			Time:             []string{"2024-01-01", "2024-01-02", "2024-01-03"},
			Temperature2mMax: []*float64{fp(33), fp(34), fp(35)},
			Temperature2mMin: []*float64{fp(24), fp(25), fp(26)},
			PrecipitationSum: []*float64{fp(0), fp(2), fp(0)},
		},
	}, nil
}

func (f *fakeSource) FetchForecast(_ context.Context, _ city.Coordinates) (*weather.Payload, error) {
	f.forecastHit.Add(1)
	f.wait()
	if err := f.fail(); err != nil {
		return nil, err
	}
	code := 61
	return &weather.Payload{
		Timezone: "UTC",
		Daily: &weather.RawDailySeries{
			Time:             []string{"2024-01-03", "2024-01-04"},
			Temperature2mMax: []*float64{fp(35), fp(30)},
			Sunrise:          []string{"2024-01-03T06:40"},
			Sunset:           []string{"2024-01-03T18:05"},
			WeatherCode:      []*int{&code, &code},
		},
	}, nil
}

func (f *fakeSource) FetchDaily(_ context.Context, pos city.Coordinates) (*weather.RawDailySeries, error) {
	f.dailyHits.Add(1)
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &weather.RawDailySeries{
		Time:             []string{"2024-01-03"},
		Temperature2mMax: []*float64{fp(pos.Latitude)},
		PrecipitationSum: []*float64{fp(1)},
	}, nil
}

func newService(t *testing.T, src weather.Source, ttl time.Duration) (*weather.Service, *clockwork.FakeClock, *observability.Metrics) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	metrics := observability.NewMetricsForTesting()
	svc := weather.NewService(
		store.NewMemoryStore(10, 0, clock),
		src,
		weather.NewMerger(clock, time.UTC),
		weather.ServiceOptions{CacheTTL: ttl, Clock: clock, Metrics: metrics},
	)
	return svc, clock, metrics
}

func TestService_Dashboard(t *testing.T) {
	src := &fakeSource{}
	svc, _, metrics := newService(t, src, 0)

	d, err := svc.Dashboard(context.Background(), bangkok, 2)
	require.NoError(t, err)

	assert.Equal(t, bangkok, d.City)
	assert.Equal(t, 2, d.RangeDays)
	assert.False(t, d.Stale)
	assert.Len(t, d.Hourly, 8)
	require.Len(t, d.Daily, 2)
	assert.Equal(t, "2024-01-02", d.Daily[0].Date)
	require.NotNil(t, d.Current)
	assert.Equal(t, 31.0, d.Current.Temperature)

	require.Len(t, d.Forecast, 2)
	assert.Equal(t, weather.ConditionRain, d.Forecast[0].Condition)

	require.NotNil(t, d.Highlights.HumidityPct)
	assert.Equal(t, 55.0, *d.Highlights.HumidityPct)
	assert.Equal(t, "S", d.Highlights.WindDirection)
	assert.Equal(t, "2024-01-03T06:40", d.Highlights.Sunrise)

	// 12:00 today is the seventh slot of a two-day range.
	require.NotNil(t, d.Hourly[6].Temperature)
	assert.Equal(t, 32.0, *d.Hourly[6].Temperature)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DashboardsServed.WithLabelValues("fresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("history", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("forecast", "success")))
}

func TestService_FetchesHistoryAndForecastConcurrently(t *testing.T) {
	var gate sync.WaitGroup
	gate.Add(2)
	src := &fakeSource{gate: &gate}
	svc, _, _ := newService(t, src, 0)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Dashboard(context.Background(), bangkok, 7)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("history and forecast were not fetched concurrently")
	}
}

func TestService_StaleFallback(t *testing.T) {
	src := &fakeSource{}
	svc, clock, metrics := newService(t, src, 0)

	first, err := svc.Dashboard(context.Background(), bangkok, 7)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	src.setErr(errors.New("upstream down"))

	d, err := svc.Dashboard(context.Background(), bangkok, 3)
	require.NoError(t, err)
	assert.True(t, d.Stale)
	assert.Equal(t, first.FetchedAt, d.FetchedAt)
	assert.Len(t, d.Hourly, 12, "stale data is re-shaped for the requested range")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DashboardsServed.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("history", "error")))
}

func TestService_ErrorWithoutPreviousSnapshot(t *testing.T) {
	upstream := errors.New("upstream down")
	src := &fakeSource{err: upstream}
	svc, _, _ := newService(t, src, 0)

	_, err := svc.Dashboard(context.Background(), bangkok, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
}

func TestService_CacheTTL(t *testing.T) {
	src := &fakeSource{}
	svc, clock, _ := newService(t, src, 10*time.Minute)

	_, err := svc.Dashboard(context.Background(), bangkok, 7)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	_, err = svc.Dashboard(context.Background(), bangkok, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.historyHits.Load(), "served from cache")

	clock.Advance(6 * time.Minute)
	_, err = svc.Dashboard(context.Background(), bangkok, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.historyHits.Load())
}

func TestService_RefreshKeepsPreviousOnFailure(t *testing.T) {
	src := &fakeSource{}
	svc, clock, _ := newService(t, src, 0)

	require.NoError(t, svc.Refresh(context.Background(), tokyo))
	first, err := svc.GetLatest(tokyo)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	src.setErr(errors.New("boom"))
	require.Error(t, svc.Refresh(context.Background(), tokyo))

	latest, err := svc.GetLatest(tokyo)
	require.NoError(t, err)
	assert.Equal(t, first.FetchedAt, latest.FetchedAt)

	snaps, err := svc.GetRange(tokyo, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestService_Compare(t *testing.T) {
	src := &fakeSource{}
	svc, _, _ := newService(t, src, 0)

	cmp, err := svc.Compare(context.Background(), bangkok, tokyo)
	require.NoError(t, err)
	require.Len(t, cmp.Series, 2)
	assert.Equal(t, "Bangkok", cmp.Series[0].City.Name)
	assert.Equal(t, bangkok.Latitude, *cmp.Series[0].TempMax[0])
	assert.Equal(t, "Tokyo", cmp.Series[1].City.Name)
	assert.Equal(t, tokyo.Latitude, *cmp.Series[1].TempMax[0])
	assert.Equal(t, int32(2), src.dailyHits.Load())

	src.setErr(errors.New("boom"))
	_, err = svc.Compare(context.Background(), bangkok, tokyo)
	assert.Error(t, err)
}
