// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"
	"log"

	"ai-research-be/pkg/research/rerrors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// standard envelope. Typed research errors carry their own status mapping;
// anything unrecognized becomes a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := mapError(err)
		if code >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s -> %d: %v", ctx.Method(), ctx.Path(), code, err)
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func mapError(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var clarification *rerrors.ClarificationError
	if errors.As(err, &clarification) {
		return fiber.StatusUnprocessableEntity, clarification.Question
	}

	var configuration *rerrors.ConfigurationError
	if errors.As(err, &configuration) {
		return fiber.StatusServiceUnavailable, configuration.Error() + ". " + configuration.Guidance()
	}

	var model *rerrors.ModelError
	if errors.As(err, &model) {
		return fiber.StatusBadGateway, model.Error()
	}

	var tool *rerrors.ToolError
	if errors.As(err, &tool) {
		return fiber.StatusBadGateway, tool.Error()
	}

	switch {
	case errors.Is(err, rerrors.ErrEmptyQuery), errors.Is(err, rerrors.ErrUnknownMode):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, rerrors.ErrSessionNotFound):
		return fiber.StatusNotFound, err.Error()
	}

	return fiber.StatusInternalServerError, err.Error()
}
