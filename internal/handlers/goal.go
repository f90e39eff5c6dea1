package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

type GoalHandler struct {
	goals *services.GoalService
}

func NewGoalHandler(goals *services.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// Simulate handles POST /v1/goals/simulate
func (h *GoalHandler) Simulate(c *fiber.Ctx) error {
	var req models.GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	resp, err := h.goals.Simulate(req)
	if err != nil {
		return fail(c, "Failed to simulate goal", err)
	}
	return c.JSON(resp)
}
