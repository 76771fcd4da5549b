package city

import (
	"context"
	"errors"
	"net/url"

	"github.com/kelvins/geocoder"
	"golang.org/x/sync/semaphore"
)

// Geocoder turns a free-form place name into coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, name string) (Coordinates, error)
}

var (
	errNoGeocodeResult = errors.New("geocoder returned no coordinates")
	errGeocoderBusy    = errors.New("too many geocoding lookups in flight")
)

// maxGeocodeLookups caps lookups still running in the background. The
// geocoder client has no timeout or context, so an abandoned lookup keeps
// its goroutine until the Google API answers.
const maxGeocodeLookups = 8

// GoogleGeocoder implements Geocoder on the Google Geocoding API.
type GoogleGeocoder struct {
	lookup   func(geocoder.Address) (geocoder.Location, error)
	inflight *semaphore.Weighted
}

// NewGoogleGeocoder configures the Google Geocoding API key. The client reads
// the key from a package variable without locking, so call this once during
// startup before any lookup runs.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return newGoogleGeocoder(geocoder.Geocoding, maxGeocodeLookups)
}

func newGoogleGeocoder(lookup func(geocoder.Address) (geocoder.Location, error), limit int64) *GoogleGeocoder {
	return &GoogleGeocoder{
		lookup:   lookup,
		inflight: semaphore.NewWeighted(limit),
	}
}

// ForwardGeocode looks up name as a city. ctx bounds how long we wait; the
// lookup itself cannot be cancelled.
func (g *GoogleGeocoder) ForwardGeocode(ctx context.Context, name string) (Coordinates, error) {
	if !g.inflight.TryAcquire(1) {
		return Coordinates{}, errGeocoderBusy
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer g.inflight.Release(1)
		loc, err := g.lookup(geocodeAddress(name))
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Coordinates{}, r.err
		}
		if r.loc.Latitude == 0 && r.loc.Longitude == 0 {
			return Coordinates{}, errNoGeocodeResult
		}
		return Coordinates{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude}, nil
	}
}

// geocodeAddress escapes name for the request URL. The client pastes the
// address into the query string and only replaces spaces itself.
func geocodeAddress(name string) geocoder.Address {
	return geocoder.Address{City: url.QueryEscape(name)}
}
