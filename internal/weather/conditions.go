package weather

import (
	"math"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// WMO weather interpretation codes used by Open-Meteo.
var codeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeCode returns the human-readable text for a WMO weather code.
func DescribeCode(code int) string {
	if d, ok := codeDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// ConditionFromCode maps a WMO weather code to a Condition.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirection converts degrees to an 8-point compass label.
func WindDirection(deg float64) string {
	i := int(math.Round(deg/45)) % len(compassPoints)
	if i < 0 {
		i += len(compassPoints)
	}
	return compassPoints[i]
}

// DewPoint approximates the dew point from temperature (°C) and relative
// humidity (%).
func DewPoint(tempC, humidityPct float64) float64 {
	return tempC - (100-humidityPct)/5
}

// buildHighlights derives the detail cards. Humidity is read at the first
// noon reading of the history; sunrise and sunset come from the first
// forecast day.
func buildHighlights(history, forecast *Payload) Highlights {
	var h Highlights

	if history != nil && history.Hourly != nil {
		for i, ts := range history.Hourly.Time {
			if common.HasAny(ts, "T12:") {
				h.HumidityPct = valueAt(history.Hourly.RelativeHumidity2m, i)
				break
			}
		}
	}

	if history != nil && history.CurrentWeather != nil {
		cw := history.CurrentWeather
		wind := cw.WindSpeed
		h.WindSpeedKmh = &wind
		h.WindDirection = WindDirection(cw.WindDirection)
		h.Description = DescribeCode(cw.WeatherCode)
		if h.HumidityPct != nil {
			dp := DewPoint(cw.Temperature, *h.HumidityPct)
			h.DewPointC = &dp
		}
	}

	if forecast != nil && forecast.Daily != nil {
		if len(forecast.Daily.Sunrise) > 0 {
			h.Sunrise = forecast.Daily.Sunrise[0]
		}
		if len(forecast.Daily.Sunset) > 0 {
			h.Sunset = forecast.Daily.Sunset[0]
		}
	}
	return h
}

// forecastDays builds up to limit forecast cards from a daily series.
func forecastDays(daily *RawDailySeries, limit int) []ForecastDay {
	if daily == nil {
		return []ForecastDay{}
	}
	n := len(daily.Time)
	if n > limit {
		n = limit
	}

	out := make([]ForecastDay, 0, n)
	for i := 0; i < n; i++ {
		day := ForecastDay{
			Date:          daily.Time[i],
			TempMax:       valueAt(daily.Temperature2mMax, i),
			TempMin:       valueAt(daily.Temperature2mMin, i),
			Precipitation: valueAt(daily.PrecipitationSum, i),
			WeatherCode:   valueAt(daily.WeatherCode, i),
			Condition:     ConditionUnknown,
			Description:   "Unknown",
		}
		if day.WeatherCode != nil {
			day.Condition = ConditionFromCode(*day.WeatherCode)
			day.Description = DescribeCode(*day.WeatherCode)
		}
		out = append(out, day)
	}
	return out
}
