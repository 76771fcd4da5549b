package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func (h *handlers) createSession(c *fiber.Ctx) error {
	s, err := h.sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.State())
}

func (h *handlers) getSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.State())
}

func (h *handlers) selectCity(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var body selectionBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid selection body")
	}
	if err := validate.Struct(body); err != nil {
		return err
	}

	rangeDays := weather.DefaultRangeDays
	if body.Range != nil {
		rangeDays = weather.ClampRange(*body.Range)
	}

	s.Select(session.Selection{
		Explicit:    body.City,
		Query:       body.Q,
		Range:       rangeDays,
		Geolocation: body.Geolocation,
	})
	return c.Status(fiber.StatusAccepted).JSON(s.State())
}

func (h *handlers) geolocate(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var body geolocationBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid geolocation body")
	}
	if err := validate.Struct(body); err != nil {
		return err
	}

	err = s.Geolocate(city.Coordinates{Latitude: *body.Latitude, Longitude: *body.Longitude})
	if err != nil {
		return geolocationError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.State())
}

func (h *handlers) denyGeolocation(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.DenyGeolocation(); err != nil {
		return geolocationError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.State())
}

func (h *handlers) deleteSession(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) session(c *fiber.Ctx) (*session.Session, error) {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return nil, err
	}
	return s, nil
}

func geolocationError(err error) error {
	if errors.Is(err, session.ErrNoPendingGeolocation) || errors.Is(err, session.ErrGeolocationSettled) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}
