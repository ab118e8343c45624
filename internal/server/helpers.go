package server

import (
	"strconv"

	"irtzalink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUserID reads the authenticated user set by the auth
// middleware. Handlers behind AuthRequired can rely on it being set.
func currentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// parseIDParam parses a positive numeric route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + name + " parameter")
	}
	return uint(id), nil
}

// parseLimit reads an optional ?limit= query value. Zero means the
// repository default.
func parseLimit(c *fiber.Ctx) int {
	return c.QueryInt("limit", 0)
}

// statusForError maps application error codes onto HTTP statuses.
func statusForError(err error) int {
	appErr, ok := err.(*models.AppError)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR", "SELF_REFERENCE":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "CONFLICT":
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}
