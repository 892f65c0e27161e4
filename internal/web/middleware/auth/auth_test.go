package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghxstship/atlvs/internal/identity"
)

type stubResolver struct {
	identity identity.Identity
	err      error
	calls    int
}

func (r *stubResolver) Resolve(_ context.Context, _ string) (identity.Identity, error) {
	r.calls++

	if r.err != nil {
		return identity.Identity{}, r.err
	}

	return r.identity, nil
}

func newTestApp(resolver identity.Resolver) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(resolver))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/protected", func(c *fiber.Ctx) error {
		id, ok := identity.FromContext(c.UserContext())
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.SendString(id.UserID)
	})

	return app
}

func TestMiddleware(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		app := newTestApp(&stubResolver{})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid credential", func(t *testing.T) {
		app := newTestApp(&stubResolver{err: identity.ErrNoIdentity})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bearer token puts the identity on the context", func(t *testing.T) {
		resolver := &stubResolver{identity: identity.Identity{UserID: "u1"}}
		app := newTestApp(resolver)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, resolver.calls, "credential must be resolved exactly once")
	})

	t.Run("session cookie works as credential", func(t *testing.T) {
		app := newTestApp(&stubResolver{identity: identity.Identity{UserID: "u1"}})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("public paths skip authentication", func(t *testing.T) {
		resolver := &stubResolver{err: identity.ErrNoIdentity}
		app := newTestApp(resolver)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Zero(t, resolver.calls)
	})
}
