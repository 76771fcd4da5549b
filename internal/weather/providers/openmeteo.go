package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenMeteoURL is the public forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const dateLayout = "2006-01-02"

var (
	hourlyFields   = []string{"temperature_2m", "relative_humidity_2m", "precipitation", "windspeed_10m"}
	historyDaily   = []string{"temperature_2m_max", "temperature_2m_min", "precipitation_sum", "sunrise", "sunset"}
	forecastDaily  = []string{"temperature_2m_max", "temperature_2m_min", "precipitation_sum", "weathercode", "sunrise", "sunset"}
	comparisonDays = []string{"temperature_2m_max", "precipitation_sum"}
)

// OpenMeteoProvider implements the weather.Source interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	loc     *time.Location
}

// NewOpenMeteoProvider creates a provider. Request dates are computed from
// clock in loc; the API itself localizes its data with timezone=auto.
func NewOpenMeteoProvider(client *http.Client, baseURL string, clock clockwork.Clock, loc *time.Location) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
		clock:   clock,
		loc:     loc,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHistory requests today-6 through today.
func (p *OpenMeteoProvider) FetchHistory(ctx context.Context, pos city.Coordinates) (*weather.Payload, error) {
	today := p.today()
	values := p.seriesQuery(pos, historyDaily, today.AddDate(0, 0, -6), today)
	return p.fetchPayload(ctx, values)
}

// FetchForecast requests today through today+6, including weather codes.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, pos city.Coordinates) (*weather.Payload, error) {
	today := p.today()
	values := p.seriesQuery(pos, forecastDaily, today, today.AddDate(0, 0, 6))
	return p.fetchPayload(ctx, values)
}

// FetchDaily requests the API's default daily window with max temperature and
// precipitation only.
func (p *OpenMeteoProvider) FetchDaily(ctx context.Context, pos city.Coordinates) (*weather.RawDailySeries, error) {
	values := coordinateQuery(pos)
	values.Set("daily", strings.Join(comparisonDays, ","))
	values.Set("timezone", "auto")

	payload, err := p.fetchPayload(ctx, values)
	if err != nil {
		return nil, err
	}
	if payload.Daily == nil {
		return &weather.RawDailySeries{}, nil
	}
	return payload.Daily, nil
}

func (p *OpenMeteoProvider) today() time.Time {
	now := p.clock.Now().In(p.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
}

func (p *OpenMeteoProvider) seriesQuery(pos city.Coordinates, daily []string, start, end time.Time) url.Values {
	values := coordinateQuery(pos)
	values.Set("hourly", strings.Join(hourlyFields, ","))
	values.Set("daily", strings.Join(daily, ","))
	values.Set("current_weather", "true")
	values.Set("timezone", "auto")
	values.Set("start_date", start.Format(dateLayout))
	values.Set("end_date", end.Format(dateLayout))
	return values
}

func coordinateQuery(pos city.Coordinates) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(pos.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
	return values
}

func (p *OpenMeteoProvider) fetchPayload(ctx context.Context, values url.Values) (*weather.Payload, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload weather.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openmeteo response: %w", err)
	}
	return &payload, nil
}
