package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// WeatherService is the part of weather.Service the handlers use.
type WeatherService interface {
	Dashboard(ctx context.Context, c city.City, rangeDays int) (weather.Dashboard, error)
	Compare(ctx context.Context, cities ...city.City) (weather.Comparison, error)
	GetLatest(c city.City) (weather.Snapshot, error)
	GetRange(c city.City, from, to time.Time) ([]weather.Snapshot, error)
}

// Deps are the collaborators the routes need.
type Deps struct {
	Resolver *city.Resolver
	Service  WeatherService
	Sessions *session.Manager
	Logger   *zap.Logger
}

type handlers struct {
	resolver *city.Resolver
	service  WeatherService
	sessions *session.Manager
	logger   *zap.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := &handlers{
		resolver: d.Resolver,
		service:  d.Service,
		sessions: d.Sessions,
		logger:   d.Logger,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	v1 := app.Group("/api/v1")

	v1.Get("/cities", h.listCities)
	v1.Get("/cities/resolve", h.resolveCity)
	v1.Get("/cities/nearest", h.nearestCity)

	v1.Get("/dashboard", h.dashboard)
	v1.Get("/compare", h.compare)
	v1.Get("/weather/current", h.currentSnapshot)
	v1.Get("/weather/history", h.history)

	if h.sessions != nil {
		s := v1.Group("/sessions")
		s.Post("/", h.createSession)
		s.Get("/:id", h.getSession)
		s.Put("/:id/selection", h.selectCity)
		s.Post("/:id/geolocation", h.geolocate)
		s.Delete("/:id/geolocation", h.denyGeolocation)
		s.Delete("/:id", h.deleteSession)
	}
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	q, err := parseResolveQuery(c)
	if err != nil {
		return err
	}
	res, err := h.resolve(c, q)
	if err != nil {
		return err
	}

	rangeDays := weather.ParseRange(queryValue(c, "range"))
	d, err := h.service.Dashboard(c.UserContext(), res.City, rangeDays)
	if err != nil {
		h.logger.Error("dashboard failed", zap.String("city", res.City.Name), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}

	return c.JSON(fiber.Map{
		"source":    res.Source,
		"dashboard": d,
	})
}

func (h *handlers) compare(c *fiber.Ctx) error {
	q := compareQuery{City1: queryValue(c, "city1"), City2: queryValue(c, "city2")}
	if err := validate.Struct(q); err != nil {
		return err
	}

	cities := make([]city.City, 0, 2)
	for _, name := range []string{q.City1, q.City2} {
		res, err := h.resolver.Resolve(c.UserContext(), city.Request{Query: name})
		if err != nil {
			return err
		}
		cities = append(cities, res.City)
	}

	cmp, err := h.service.Compare(c.UserContext(), cities...)
	if err != nil {
		h.logger.Error("compare failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch comparison data")
	}
	return c.JSON(cmp)
}

func (h *handlers) currentSnapshot(c *fiber.Ctx) error {
	target, err := h.namedCity(c)
	if err != nil {
		return err
	}

	snapshot, err := h.service.GetLatest(target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}

	return c.JSON(snapshot)
}

func (h *handlers) history(c *fiber.Ctx) error {
	var req historyQuery
	if err := req.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	target, err := h.namedCity(c)
	if err != nil {
		return err
	}

	snapshots, err := h.service.GetRange(target, req.From, req.To)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
	}

	return c.JSON(fiber.Map{
		"city":      target,
		"from":      req.From,
		"to":        req.To,
		"snapshots": snapshots,
	})
}

// namedCity resolves the required ?city= parameter the way a URL query is
// resolved.
func (h *handlers) namedCity(c *fiber.Ctx) (city.City, error) {
	q := cityQuery{City: queryValue(c, "city")}
	if err := validate.Struct(q); err != nil {
		return city.City{}, err
	}
	res, err := h.resolver.Resolve(c.UserContext(), city.Request{Query: q.City})
	if err != nil {
		return city.City{}, err
	}
	return res.City, nil
}
