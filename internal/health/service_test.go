package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func get(t *testing.T, h *HealthHandler) (int, OverallHealth) {
	t.Helper()
	app := fiber.New()
	app.Get("/v1/health", HealthLimiter(), h.HandleHealth)
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil))
	require.NoError(t, err)
	var body OverallHealth
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth_NotReady(t *testing.T) {
	code, body := get(t, NewHealthHandler(map[string]CheckFunc{"redis": ok}))
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", body.OverallStatus)
}

func TestHealth_AllOk(t *testing.T) {
	h := NewHealthHandler(map[string]CheckFunc{"redis": ok, "postgres": ok})
	h.SetReady()

	code, body := get(t, h)

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body.OverallStatus)
	assert.Len(t, body.Components, 2)
}

func TestHealth_ComponentDown(t *testing.T) {
	h := NewHealthHandler(map[string]CheckFunc{
		"redis":    ok,
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	h.SetReady()

	code, body := get(t, h)

	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body.OverallStatus)
	assert.Equal(t, "connection refused", body.Components["postgres"].Error)
	assert.Equal(t, "ok", body.Components["redis"].Status)
}
