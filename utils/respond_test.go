package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"duomatch/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func doRequest(t *testing.T, handler fiber.Handler) (int, envelope) {
	t.Helper()
	app := fiber.New()
	app.Get("/test", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return resp.StatusCode, env
}

func TestOKEnvelope(t *testing.T) {
	status, env := doRequest(t, func(c *fiber.Ctx) error {
		return OK(c, fiber.Map{"hello": "world"})
	})

	assert.Equal(t, 200, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"hello":"world"}`, string(env.Data))
	assert.Nil(t, env.Error)
}

func TestFailServiceError(t *testing.T) {
	status, env := doRequest(t, func(c *fiber.Ctx) error {
		return Fail(c, services.NewValidationError("bad input", map[string]string{"name": "required"}))
	})

	assert.Equal(t, 400, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, services.CodeValidation, env.Error.Code)
	assert.Equal(t, "bad input", env.Error.Message)
	assert.Equal(t, "required", env.Error.Fields["name"])
}

func TestFailUnknownErrorIsOpaque(t *testing.T) {
	status, env := doRequest(t, func(c *fiber.Ctx) error {
		return Fail(c, errors.New("pq: deadlock detected"))
	})

	assert.Equal(t, 500, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, services.CodeInternal, env.Error.Code)
	// Internal details must not leak into the response.
	assert.NotContains(t, env.Error.Message, "deadlock")
}
