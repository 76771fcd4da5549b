package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-dashboard/internal/city"
)

// queryValue returns a copy of the query parameter. fiber's own strings
// point into the request buffer, which is reused once the handler returns,
// and resolved names end up as store keys.
func queryValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}

// coordsQuery holds an optional lat/lon pair; both or neither must be set.
type coordsQuery struct {
	Lat string `validate:"required_with=Lon,omitempty,latitude"`
	Lon string `validate:"required_with=Lat,omitempty,longitude"`
}

func (q coordsQuery) present() bool {
	return q.Lat != "" && q.Lon != ""
}

func (q coordsQuery) coordinates() (city.Coordinates, error) {
	if !q.present() {
		return city.Coordinates{}, errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return city.Coordinates{}, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return city.Coordinates{}, errors.New("invalid lon")
	}
	return city.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// resolveQuery holds the resolver inputs carried on a URL.
type resolveQuery struct {
	City   string `validate:"max=100"`
	Q      string `validate:"max=100"`
	Coords coordsQuery
	Geo    string `validate:"omitempty,oneof=denied"`
}

func parseResolveQuery(c *fiber.Ctx) (resolveQuery, error) {
	q := resolveQuery{
		City:   queryValue(c, "city"),
		Q:      queryValue(c, "q"),
		Coords: coordsQuery{Lat: queryValue(c, "lat"), Lon: queryValue(c, "lon")},
		Geo:    queryValue(c, "geo"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// request maps the query to a resolver request. Coordinates stand in for a
// device position the client already knows; geo=denied reports a refusal.
func (q resolveQuery) request() (city.Request, error) {
	req := city.Request{Explicit: q.City, Query: q.Q}
	switch {
	case q.Coords.present():
		pos, err := q.Coords.coordinates()
		if err != nil {
			return req, err
		}
		req.Locator = city.StaticLocator(pos)
	case q.Geo == "denied":
		req.Locator = city.DeniedLocator{}
	}
	return req, nil
}

type cityQuery struct {
	City string `validate:"required,max=100"`
}

type compareQuery struct {
	City1 string `validate:"required,max=100"`
	City2 string `validate:"required,max=100"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := queryValue(c, "from")
	toStr := queryValue(c, "to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// selectionBody is the JSON body of PUT /sessions/:id/selection.
type selectionBody struct {
	City        string `json:"city" validate:"max=100"`
	Q           string `json:"q" validate:"max=100"`
	Range       *int   `json:"range"`
	Geolocation bool   `json:"geolocation"`
}

// geolocationBody is the JSON body of POST /sessions/:id/geolocation.
type geolocationBody struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}
