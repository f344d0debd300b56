package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/permit-map/internal/pkg/errors"
)

func invalidBody(err error) error {
	return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
		"body": err.Error(),
	})
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.ErrSessionNotFound
	}
	return id, nil
}
