package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

// statusFor maps domain errors onto HTTP status codes. Validation
// failures are the caller's fault, infeasible analytics are 422, and
// upstream market-data outages surface as 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, quant.ErrInvalidTolerance),
		errors.Is(err, quant.ErrInvalidHorizon),
		errors.Is(err, quant.ErrInvalidDateRange):
		return fiber.StatusBadRequest
	case errors.Is(err, quant.ErrInsufficientData),
		errors.Is(err, quant.ErrInsufficientHistory),
		errors.Is(err, quant.ErrInfeasibleUniverse),
		errors.Is(err, quant.ErrDegenerateInput):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, quant.ErrExternalDataUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, title string, err error) error {
	code := statusFor(err)
	return c.Status(code).JSON(models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
		Code:    code,
	})
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: err.Error(),
		Code:    code,
	})
}
