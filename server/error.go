package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

type ErrorResponse struct {
	Error Error `json:"error"`
}

type Error struct {
	Message string `json:"message"`
}

var ErrorHandler = func(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	switch cause := eris.Cause(err); {
	case errors.As(err, &e):
		code = e.Code
	case errors.Is(cause, worldstate.ErrUnauthorized):
		code = fiber.StatusForbidden
	case errors.Is(cause, worldstate.ErrModelNotFound),
		errors.Is(cause, worldstate.ErrNamespaceNotFound):
		code = fiber.StatusNotFound
	case errors.Is(cause, worldstate.ErrResourceAlreadyRegistered):
		code = fiber.StatusConflict
	case errors.Is(cause, worldstate.ErrInvalidValuesLength),
		errors.Is(cause, worldstate.ErrInvalidArrayLength),
		errors.Is(cause, worldstate.ErrInvalidVariantValue),
		errors.Is(cause, worldstate.ErrVariantNotFound),
		errors.Is(cause, worldstate.ErrBadMemberID),
		errors.Is(cause, worldstate.ErrPackedMemberAccess),
		errors.Is(cause, worldstate.ErrUnexpectedLayoutType),
		errors.Is(cause, worldstate.ErrIncompatibleUpgrade),
		errors.Is(cause, worldstate.ErrNotPackable),
		errors.Is(cause, types.ErrInvalidName),
		errors.Is(cause, types.ErrSlotTooWide),
		errors.Is(cause, types.ErrDuplicateField),
		errors.Is(cause, types.ErrDuplicateVariant):
		code = fiber.StatusBadRequest
	}

	c.Set(fiber.HeaderContentType, "application/json")

	return c.Status(code).JSON(ErrorResponse{Error: Error{Message: err.Error()}})
}
