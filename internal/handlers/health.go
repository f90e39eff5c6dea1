package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Adhiksha007/AuraFinance/internal/services"
)

type HealthHandler struct {
	startTime time.Time
	cache     *services.CacheService
}

func NewHealthHandler(cache *services.CacheService) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		cache:     cache,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "aura-finance-api",
		"version": "1.0.0",
		"uptime":  time.Since(h.startTime).String(),
		"time":    time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	cacheBackend := "memory"
	if h.cache.Persistent() {
		cacheBackend = "firestore"
	}

	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": fiber.Map{
			"api":   "ok",
			"cache": cacheBackend,
		},
	})
}
