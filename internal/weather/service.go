package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/observability"
)

const forecastCards = 7

// Service fetches weather for resolved cities, keeps the last good snapshot
// per city and shapes snapshots into dashboards.
type Service struct {
	store   Store
	source  Source
	merger  *Merger
	clock   clockwork.Clock
	maxAge  time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// ServiceOptions holds optional Service settings.
type ServiceOptions struct {
	// CacheTTL lets Dashboard reuse a stored snapshot younger than this
	// instead of fetching. Zero always fetches.
	CacheTTL time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewService creates a new Service.
func NewService(store Store, source Source, merger *Merger, opts ServiceOptions) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		source:  source,
		merger:  merger,
		clock:   opts.Clock,
		maxAge:  opts.CacheTTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Dashboard returns the dashboard for c over rangeDays. A fresh snapshot is
// fetched unless a cached one is young enough. If fetching fails, the last
// stored snapshot is served with Stale set; only when none exists is the
// fetch error returned.
func (s *Service) Dashboard(ctx context.Context, c city.City, rangeDays int) (Dashboard, error) {
	if snap, ok := s.cached(c); ok {
		s.served("fresh")
		return s.build(snap, rangeDays, false), nil
	}

	snap, err := s.fetch(ctx, c)
	if err == nil {
		s.store.SaveSnapshot(c, snap)
		s.served("fresh")
		return s.build(snap, rangeDays, false), nil
	}

	s.logger.Warn("weather fetch failed",
		zap.String("city", c.Name),
		zap.Error(err),
	)

	prev, lookupErr := s.store.GetLatest(c)
	if lookupErr != nil {
		return Dashboard{}, err
	}
	s.served("stale")
	return s.build(prev, rangeDays, true), nil
}

// Refresh fetches and stores a snapshot for c. On failure the previous
// snapshot is kept.
func (s *Service) Refresh(ctx context.Context, c city.City) error {
	snap, err := s.fetch(ctx, c)
	if err != nil {
		return err
	}
	s.store.SaveSnapshot(c, snap)
	return nil
}

// Compare fetches the default daily series for each city concurrently.
func (s *Service) Compare(ctx context.Context, cities ...city.City) (Comparison, error) {
	series := make([]ComparisonSeries, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cities {
		i, c := i, c
		g.Go(func() error {
			start := s.clock.Now()
			daily, err := s.source.FetchDaily(gctx, c.Coordinates())
			s.observeFetch("compare", start, err)
			if err != nil {
				return fmt.Errorf("compare %s: %w", c.Name, err)
			}
			series[i] = comparisonSeries(c, daily)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	return Comparison{Series: series}, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(c city.City) (Snapshot, error) {
	return s.store.GetLatest(c)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(c city.City, from, to time.Time) ([]Snapshot, error) {
	return s.store.GetRange(c, from, to)
}

// fetch requests history and forecast concurrently. Either failure aborts
// the pair.
func (s *Service) fetch(ctx context.Context, c city.City) (Snapshot, error) {
	var history, forecast *Payload
	pos := c.Coordinates()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := s.clock.Now()
		p, err := s.source.FetchHistory(gctx, pos)
		s.observeFetch("history", start, err)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		history = p
		return nil
	})
	g.Go(func() error {
		start := s.clock.Now()
		p, err := s.source.FetchForecast(gctx, pos)
		s.observeFetch("forecast", start, err)
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		forecast = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	s.logger.Debug("fetched weather",
		zap.String("city", c.Name),
		zap.String("source", s.source.Name()),
	)
	return Snapshot{
		City:      c,
		FetchedAt: s.clock.Now().UTC(),
		History:   history,
		Forecast:  forecast,
	}, nil
}

func (s *Service) cached(c city.City) (Snapshot, bool) {
	if s.maxAge <= 0 {
		return Snapshot{}, false
	}
	snap, err := s.store.GetLatest(c)
	if err != nil {
		return Snapshot{}, false
	}
	if s.clock.Since(snap.FetchedAt) > s.maxAge {
		return Snapshot{}, false
	}
	return snap, true
}

func (s *Service) build(snap Snapshot, rangeDays int, stale bool) Dashboard {
	merged := s.merger.Merge(snap.History, rangeDays)

	d := Dashboard{
		City:       snap.City,
		RangeDays:  rangeDays,
		Daily:      merged.Daily,
		Hourly:     merged.Hourly,
		Forecast:   []ForecastDay{},
		Highlights: buildHighlights(snap.History, snap.Forecast),
		FetchedAt:  snap.FetchedAt,
		Stale:      stale,
	}
	if snap.History != nil {
		d.Current = snap.History.CurrentWeather
	}
	if snap.Forecast != nil {
		d.Forecast = forecastDays(snap.Forecast.Daily, forecastCards)
	}
	return d
}

func (s *Service) observeFetch(kind string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
	}
	s.metrics.FetchRequests.WithLabelValues(kind, outcome).Inc()
	s.metrics.FetchDuration.WithLabelValues(kind).Observe(s.clock.Since(start).Seconds())
}

func (s *Service) served(freshness string) {
	if s.metrics != nil {
		s.metrics.DashboardsServed.WithLabelValues(freshness).Inc()
	}
}

func comparisonSeries(c city.City, daily *RawDailySeries) ComparisonSeries {
	out := ComparisonSeries{
		City:          c,
		Dates:         []string{},
		TempMax:       []*float64{},
		Precipitation: []*float64{},
	}
	if daily == nil {
		return out
	}
	out.Dates = daily.Time
	for i := range daily.Time {
		out.TempMax = append(out.TempMax, valueAt(daily.Temperature2mMax, i))
		out.Precipitation = append(out.Precipitation, valueAt(daily.PrecipitationSum, i))
	}
	return out
}
