package handlers

import (
	"errors"

	"spruce/internal/logger"
	"spruce/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError translates the service error taxonomy into HTTP statuses.
// Anything outside the taxonomy is a 500 with a generic body; the detail
// stays in the logs.
func respondError(c *fiber.Ctx, log logger.Logger, err error) error {
	var missingPhotos *services.MissingPhotosError
	if errors.As(err, &missingPhotos) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":         missingPhotos.Error(),
			"missingPhotos": string(missingPhotos.Kind),
		})
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrGateway):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	log.Warn("unhandled error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

// parseUUIDParam reads a route parameter as a UUID, mapping parse failures to
// a validation error.
func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	value, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, services.NewDomainError(
			services.ErrValidation,
			"invalid "+name,
		)
	}
	return value, nil
}
