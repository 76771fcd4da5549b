package weather

import (
	"context"
	"time"

	"github.com/i474232898/weather-dashboard/internal/city"
)

// Source abstracts the weather data API (Open-Meteo).
type Source interface {
	Name() string
	// FetchHistory returns hourly and daily data for the past seven days
	// including today, plus the current conditions.
	FetchHistory(ctx context.Context, pos city.Coordinates) (*Payload, error)
	// FetchForecast returns data for today and the following six days.
	FetchForecast(ctx context.Context, pos city.Coordinates) (*Payload, error)
	// FetchDaily returns the default daily max temperature and precipitation
	// series used by compare mode.
	FetchDaily(ctx context.Context, pos city.Coordinates) (*RawDailySeries, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSnapshot(c city.City, snapshot Snapshot)
	GetLatest(c city.City) (Snapshot, error)
	GetRange(c city.City, from, to time.Time) ([]Snapshot, error)
}
