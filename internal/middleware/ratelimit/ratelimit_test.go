package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_ConsumesAndRefusesTokens(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("client"), "request %d should pass", i)
	}
	assert.False(t, rl.allow("client"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})

	require.True(t, rl.allow("a"))
	require.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
}

func TestMiddleware_Returns429WhenExhausted(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2})

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
