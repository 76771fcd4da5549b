// Package city holds the static city catalog and resolves which city a
// dashboard request is about.
package city

import (
	"math"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// DefaultCityName is the fallback when nothing else identifies a city.
const DefaultCityName = "Bangkok"

// City is a named location from the catalog, or a placeholder synthesized
// for an unknown name.
type City struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the city's position.
func (c City) Coordinates() Coordinates {
	return Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Key returns a canonical string key for indexing this city in stores.
func (c City) Key() string {
	return common.FoldName(c.Name)
}

var defaultCities = []City{
	{Name: "Bangkok", Region: "TH", Latitude: 13.7563, Longitude: 100.5018},
	{Name: "Chiang Mai", Region: "TH", Latitude: 18.7883, Longitude: 98.9853},
	{Name: "Phuket", Region: "TH", Latitude: 7.8804, Longitude: 98.3923},
	{Name: "Khon Kaen", Region: "TH", Latitude: 16.4419, Longitude: 102.835},
	{Name: "Hat Yai", Region: "TH", Latitude: 7.0084, Longitude: 100.4746},
	{Name: "New York", Region: "New York", Latitude: 40.7128, Longitude: -74.006},
	{Name: "Tokyo", Region: "Tokyo", Latitude: 35.6762, Longitude: 139.6503},
	{Name: "Paris", Region: "Île-de-France", Latitude: 48.8566, Longitude: 2.3522},
	{Name: "London", Region: "England", Latitude: 51.5074, Longitude: -0.1278},
	{Name: "Sydney", Region: "New South Wales", Latitude: -33.8688, Longitude: 151.2093},
	{Name: "Burkina Faso", Region: "BF", Latitude: 12.2383, Longitude: -1.5616},
	{Name: "Canada", Region: "CA", Latitude: 56.1304, Longitude: -106.3468},
}

// Catalog is an immutable, ordered list of known cities.
type Catalog struct {
	cities []City
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultCities)
}

// NewCatalog builds a catalog from cities, preserving their order.
func NewCatalog(cities []City) *Catalog {
	cp := make([]City, len(cities))
	copy(cp, cities)
	return &Catalog{cities: cp}
}

// All returns a copy of every catalog entry in order.
func (c *Catalog) All() []City {
	cp := make([]City, len(c.cities))
	copy(cp, c.cities)
	return cp
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.cities)
}

// Lookup finds a city by case-insensitive exact name.
func (c *Catalog) Lookup(name string) (City, bool) {
	if name == "" {
		return City{}, false
	}
	for _, ct := range c.cities {
		if common.SameName(ct.Name, name) {
			return ct, true
		}
	}
	return City{}, false
}

// Nearest returns the entry closest to pos. Distance is planar Euclidean on
// raw degrees, not great-circle; ties keep the earlier entry.
func (c *Catalog) Nearest(pos Coordinates) (City, bool) {
	if len(c.cities) == 0 {
		return City{}, false
	}
	best := c.cities[0]
	bestDist := degreeDistance(best.Coordinates(), pos)
	for _, ct := range c.cities[1:] {
		if d := degreeDistance(ct.Coordinates(), pos); d < bestDist {
			best, bestDist = ct, d
		}
	}
	return best, true
}

// Default returns Bangkok, or the first entry if Bangkok is absent.
func (c *Catalog) Default() (City, bool) {
	for _, ct := range c.cities {
		if ct.Name == DefaultCityName {
			return ct, true
		}
	}
	if len(c.cities) == 0 {
		return City{}, false
	}
	return c.cities[0], true
}

func degreeDistance(a, b Coordinates) float64 {
	return math.Hypot(a.Latitude-b.Latitude, a.Longitude-b.Longitude)
}
