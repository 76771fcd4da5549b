package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the dashboard service.
type Metrics struct {
	// Upstream Open-Meteo calls.
	FetchRequests *prometheus.CounterVec   // labels: kind={history,forecast,compare}, outcome={success,error,canceled}
	FetchDuration *prometheus.HistogramVec // labels: kind

	// City resolution by the step that produced the city.
	Resolutions *prometheus.CounterVec // labels: source={explicit,query,placeholder,geocoded,geolocation,default}

	DashboardsServed *prometheus.CounterVec // labels: freshness={fresh,stale}
	StaleDiscarded   prometheus.Counter
	ActiveSessions   prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.Resolutions,
		m.DashboardsServed,
		m.StaleDiscarded,
		m.ActiveSessions,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "fetch_requests_total",
			Help:      "Open-Meteo requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_dashboard",
			Name:      "fetch_duration_seconds",
			Help:      "Open-Meteo request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "city_resolutions_total",
			Help:      "City resolutions by the step that produced the city.",
		}, []string{"source"}),
		DashboardsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "dashboards_served_total",
			Help:      "Dashboards returned, split by fresh fetch or stale fallback.",
		}, []string{"freshness"}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "session_results_discarded_total",
			Help:      "Session results dropped because a newer selection superseded them.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_dashboard",
			Name:      "active_sessions",
			Help:      "Number of live dashboard sessions.",
		}),
	}
}
