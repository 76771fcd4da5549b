package weather

import (
	"time"

	"github.com/i474232898/weather-dashboard/internal/city"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// CurrentWeather is Open-Meteo's current_weather block.
type CurrentWeather struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
}

// RawHourlySeries is the hourly block of an Open-Meteo response. Value slices
// are index-aligned with Time; JSON nulls decode to nil.
type RawHourlySeries struct {
	Time               []string   `json:"time"`
	Temperature2m      []*float64 `json:"temperature_2m"`
	RelativeHumidity2m []*float64 `json:"relative_humidity_2m"`
	Precipitation      []*float64 `json:"precipitation"`
	WindSpeed10m       []*float64 `json:"windspeed_10m"`
}

// RawDailySeries is the daily block of an Open-Meteo response, index-aligned
// with Time.
type RawDailySeries struct {
	Time             []string   `json:"time"`
	Temperature2mMax []*float64 `json:"temperature_2m_max"`
	Temperature2mMin []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	Sunrise          []string   `json:"sunrise,omitempty"`
	Sunset           []string   `json:"sunset,omitempty"`
	WeatherCode      []*int     `json:"weathercode,omitempty"`
}

// Payload is one Open-Meteo forecast response.
type Payload struct {
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	Timezone         string           `json:"timezone"`
	UTCOffsetSeconds int              `json:"utc_offset_seconds"`
	CurrentWeather   *CurrentWeather  `json:"current_weather,omitempty"`
	Hourly           *RawHourlySeries `json:"hourly,omitempty"`
	Daily            *RawDailySeries  `json:"daily,omitempty"`
}

// Location returns the payload's time zone. Timestamps in the payload are
// local wall-clock times in this zone. fallback is used when the payload
// names no zone we can load.
func (p *Payload) Location(fallback *time.Location) *time.Location {
	if p == nil {
		return fallback
	}
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	if p.Timezone != "" || p.UTCOffsetSeconds != 0 {
		return time.FixedZone(p.Timezone, p.UTCOffsetSeconds)
	}
	return fallback
}

// DailySummaryPoint is one day of the summary chart.
type DailySummaryPoint struct {
	Date      string   `json:"date"`
	TempMax   *float64 `json:"tempMax"`
	TempMin   *float64 `json:"tempMin"`
	RainTotal *float64 `json:"rainTotal"`
}

// HourlySamplePoint is one sampled hour of the hourly chart. Temperature is
// nil when the source had no reading for the slot.
type HourlySamplePoint struct {
	Time        time.Time `json:"time"`
	Temperature *float64  `json:"temperature"`
}

// Merged is the fixed-shape output of the series merger.
type Merged struct {
	Daily  []DailySummaryPoint `json:"daily"`
	Hourly []HourlySamplePoint `json:"hourly"`
}

// ForecastDay is one day of the next-7-days forecast cards.
type ForecastDay struct {
	Date          string    `json:"date"`
	TempMax       *float64  `json:"tempMax"`
	TempMin       *float64  `json:"tempMin"`
	Precipitation *float64  `json:"precipitation"`
	WeatherCode   *int      `json:"weatherCode"`
	Condition     Condition `json:"condition"`
	Description   string    `json:"description"`
}

// Highlights are the derived values shown on the dashboard's detail cards.
type Highlights struct {
	HumidityPct   *float64 `json:"humidityPercent"`
	DewPointC     *float64 `json:"dewPointC"`
	WindSpeedKmh  *float64 `json:"windSpeedKmh"`
	WindDirection string   `json:"windDirection,omitempty"`
	Description   string   `json:"description,omitempty"`
	Sunrise       string   `json:"sunrise,omitempty"`
	Sunset        string   `json:"sunset,omitempty"`
}

// Snapshot is one successful history+forecast fetch for a city.
type Snapshot struct {
	City      city.City `json:"city"`
	FetchedAt time.Time `json:"fetchedAt"`
	History   *Payload  `json:"history"`
	Forecast  *Payload  `json:"forecast"`
}

// Dashboard is everything the presentation layer renders for one city.
type Dashboard struct {
	City       city.City           `json:"city"`
	RangeDays  int                 `json:"rangeDays"`
	Current    *CurrentWeather     `json:"current,omitempty"`
	Daily      []DailySummaryPoint `json:"daily"`
	Hourly     []HourlySamplePoint `json:"hourly"`
	Forecast   []ForecastDay       `json:"forecast"`
	Highlights Highlights          `json:"highlights"`
	FetchedAt  time.Time           `json:"fetchedAt"`
	// Stale is set when the latest fetch failed and an earlier snapshot was used.
	Stale bool `json:"stale"`
}

// ComparisonSeries is one city's daily series in compare mode.
type ComparisonSeries struct {
	City          city.City  `json:"city"`
	Dates         []string   `json:"dates"`
	TempMax       []*float64 `json:"tempMax"`
	Precipitation []*float64 `json:"precipitation"`
}

// Comparison holds side-by-side daily series for several cities.
type Comparison struct {
	Series []ComparisonSeries `json:"series"`
}
