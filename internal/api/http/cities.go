package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/city"
)

func (h *handlers) listCities(c *fiber.Ctx) error {
	cat := h.resolver.Catalog()
	resp := fiber.Map{"cities": cat.All()}
	if def, ok := cat.Default(); ok {
		resp["default"] = def
	}
	return c.JSON(resp)
}

func (h *handlers) resolveCity(c *fiber.Ctx) error {
	q, err := parseResolveQuery(c)
	if err != nil {
		return err
	}
	res, err := h.resolve(c, q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *handlers) nearestCity(c *fiber.Ctx) error {
	q := coordsQuery{Lat: queryValue(c, "lat"), Lon: queryValue(c, "lon")}
	if err := validate.Struct(q); err != nil {
		return err
	}
	pos, err := q.coordinates()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	nearest, ok := h.resolver.Catalog().Nearest(pos)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "city catalog is empty")
	}
	return c.JSON(nearest)
}

func (h *handlers) resolve(c *fiber.Ctx, q resolveQuery) (city.Resolution, error) {
	req, err := q.request()
	if err != nil {
		return city.Resolution{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return h.resolver.Resolve(c.UserContext(), req)
}
