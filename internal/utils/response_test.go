package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*fiber.App, APIResponse, int) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	response, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var payload APIResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))

	return app, payload, response.StatusCode
}

func TestSendSuccess(t *testing.T) {
	_, payload, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "done", fiber.Map{"id": 1})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "done", payload.Message)
	require.NotNil(t, payload.Data)
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	_, payload, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "", nil)
	})

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "success", payload.Message)
}

func TestSendSuccessWithStatus(t *testing.T) {
	_, payload, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccessWithStatus(c, fiber.StatusCreated, "created", nil)
	})

	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, payload.Success)
}

func TestSendError(t *testing.T) {
	_, payload, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusNotFound, "missing")
	})

	require.Equal(t, fiber.StatusNotFound, status)
	require.False(t, payload.Success)
	require.Equal(t, "missing", payload.Message)
	require.Nil(t, payload.Data)
}
