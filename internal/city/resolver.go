package city

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/observability"
)

// ErrEmptyCatalog is returned when resolution needs a catalog entry and the
// catalog has none.
var ErrEmptyCatalog = errors.New("city catalog is empty")

// Source names the resolution step that produced a city.
type Source string

const (
	SourceExplicit    Source = "explicit"
	SourceQuery       Source = "query"
	SourcePlaceholder Source = "placeholder"
	SourceGeocoded    Source = "geocoded"
	SourceGeolocation Source = "geolocation"
	SourceDefault     Source = "default"
)

// Request carries the optional inputs to a resolution. Empty strings and a nil
// Locator mean "not provided".
type Request struct {
	// Explicit is a city chosen directly by the user.
	Explicit string
	// Query is the city name taken from the URL query string.
	Query string
	// Locator provides the device position when geolocation is available.
	Locator Locator
}

// Resolution is the resolved city and how it was chosen.
type Resolution struct {
	City   City   `json:"city"`
	Source Source `json:"source"`
}

// ResolverOptions holds optional resolver collaborators.
type ResolverOptions struct {
	// Geocoder, when set, gives unknown query names real coordinates.
	Geocoder Geocoder
	// GeolocationTimeout bounds the wait on a Locator; zero waits forever.
	GeolocationTimeout time.Duration
	Metrics            *observability.Metrics
}

// Resolver picks exactly one city for a request.
type Resolver struct {
	catalog    *Catalog
	geocoder   Geocoder
	geoTimeout time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewResolver creates a Resolver over catalog.
func NewResolver(catalog *Catalog, logger *zap.Logger, opts ResolverOptions) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog:    catalog,
		geocoder:   opts.Geocoder,
		geoTimeout: opts.GeolocationTimeout,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Catalog returns the catalog the resolver searches.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve applies the resolution order, first match wins:
//
//  1. explicit name found in the catalog
//  2. query name found in the catalog, else a placeholder city at (0,0)
//  3. nearest catalog city to the located position
//  4. Bangkok, or the first catalog entry
//
// A geolocation failure falls through to step 4. The only error besides
// ErrEmptyCatalog is ctx's, when the caller gives up while the locator is
// still pending.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	res, err := r.resolve(ctx, req)
	if err == nil && r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(string(res.Source)).Inc()
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, req Request) (Resolution, error) {
	if req.Explicit != "" {
		if c, ok := r.catalog.Lookup(req.Explicit); ok {
			return Resolution{City: c, Source: SourceExplicit}, nil
		}
		r.logger.Debug("explicit city not in catalog", zap.String("city", req.Explicit))
	}

	if req.Query != "" {
		if c, ok := r.catalog.Lookup(req.Query); ok {
			return Resolution{City: c, Source: SourceQuery}, nil
		}
		return r.placeholder(ctx, req.Query), nil
	}

	if req.Locator != nil {
		c, ok, err := r.locate(ctx, req.Locator)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			return Resolution{City: c, Source: SourceGeolocation}, nil
		}
	}

	c, ok := r.catalog.Default()
	if !ok {
		return Resolution{}, ErrEmptyCatalog
	}
	return Resolution{City: c, Source: SourceDefault}, nil
}

// placeholder synthesizes a city for a name the catalog does not know.
func (r *Resolver) placeholder(ctx context.Context, name string) Resolution {
	c := City{Name: name}
	if r.geocoder == nil {
		return Resolution{City: c, Source: SourcePlaceholder}
	}

	pos, err := r.geocoder.ForwardGeocode(ctx, name)
	if err != nil {
		r.logger.Warn("forward geocoding failed", zap.String("city", name), zap.Error(err))
		return Resolution{City: c, Source: SourcePlaceholder}
	}
	c.Latitude = pos.Latitude
	c.Longitude = pos.Longitude
	return Resolution{City: c, Source: SourceGeocoded}
}

// locate waits on the locator. ok is false when geolocation failed and the
// default should be used; err is set only when ctx itself ended.
func (r *Resolver) locate(ctx context.Context, loc Locator) (City, bool, error) {
	lctx := ctx
	if r.geoTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, r.geoTimeout)
		defer cancel()
	}

	pos, err := loc.Locate(lctx)
	if err != nil {
		if ctx.Err() != nil {
			return City{}, false, ctx.Err()
		}
		r.logger.Info("geolocation unavailable, using default city", zap.Error(err))
		return City{}, false, nil
	}

	c, ok := r.catalog.Nearest(pos)
	if !ok {
		return City{}, false, ErrEmptyCatalog
	}
	return c, true, nil
}
