package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensMatch(t *testing.T) {
	t.Parallel()

	assert.True(t, tokensMatch("secret-token", "secret-token"))
	assert.False(t, tokensMatch("secret-token", "other-token"))
	assert.False(t, tokensMatch("", "secret-token"))
	assert.False(t, tokensMatch("secret-toke", "secret-token"))
}

func TestHashServiceToken(t *testing.T) {
	t.Parallel()

	a := HashServiceToken("tok")
	b := HashServiceToken("tok")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashServiceToken("tok2"))
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/monitoring", ServiceKeyAuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestServiceKeyAuthMiddleware(t *testing.T) {
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	env.Env["MONITORING_SERVICE_TOKEN"] = "svc-token"
	defer delete(env.Env, "MONITORING_SERVICE_TOKEN")

	app := newProtectedApp()

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "service token header", header: "X-Service-Token", value: "svc-token", wantStatus: fiber.StatusOK},
		{name: "bearer token", header: "Authorization", value: "Bearer svc-token", wantStatus: fiber.StatusOK},
		{name: "wrong token", header: "X-Service-Token", value: "nope", wantStatus: fiber.StatusUnauthorized},
		{name: "missing token", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/monitoring", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestServiceKeyAuthMiddlewareUnconfiguredLocks(t *testing.T) {
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	delete(env.Env, "MONITORING_SERVICE_TOKEN")

	app := newProtectedApp()

	req := httptest.NewRequest("GET", "/monitoring", nil)
	req.Header.Set("X-Service-Token", "anything")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "unconfigured token must lock the surface")
}
