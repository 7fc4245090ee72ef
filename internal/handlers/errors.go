package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"alfredoptarigan/ats-scanner/internal/services"
)

const (
	ClientIDHeader  = "X-Client-ID"
	defaultClientID = "anonymous"
	maxClientIDLen  = 64
)

// ClientID is the persistence scope of the request.
func ClientID(c *fiber.Ctx) string {
	id := strings.TrimSpace(c.Get(ClientIDHeader))
	if id == "" {
		return defaultClientID
	}
	if len(id) > maxClientIDLen {
		id = id[:maxClientIDLen]
	}
	// header values alias the request buffer; sessions outlive the request
	return utils.CopyString(id)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrNoSavedAnalysis):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnsupportedType):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrReadFailure):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotIdle), errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrNoRecord):
		return fiber.StatusConflict
	}

	var persistErr *services.PersistenceError
	if errors.As(err, &persistErr) {
		if persistErr.Op == "load" {
			return fiber.StatusUnprocessableEntity
		}
		return fiber.StatusInternalServerError
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// errorMessage prefers the user-facing message of validation errors.
func errorMessage(err error) string {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return err.Error()
}

func writeError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	return c.Status(code).JSON(fiber.Map{
		"error": errorMessage(err),
		"code":  code,
	})
}

// ErrorHandler is the fiber error handler of the API.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
