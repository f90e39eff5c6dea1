package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

func TestReady_ReportsCacheBackend(t *testing.T) {
	// No Firestore project configured, so the cache runs memory-only and
	// readiness must say so instead of claiming a persistent backend.
	cache := services.NewCacheService(&config.Config{CacheTTLHours: 1}, zerolog.Nop())
	h := NewHealthHandler(cache)

	app := fiber.New()
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "ready", payload.Status)
	assert.Equal(t, "ok", payload.Checks["api"])
	assert.Equal(t, "memory", payload.Checks["cache"])
}
