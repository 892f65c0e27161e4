package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ghxstship/atlvs/internal/identity"
)

const bearerPrefix = "Bearer "

// publicPaths need no identity.
var publicPaths = []string{"/api/login", "/health", "/metrics"} //nolint:gochecknoglobals

// Middleware returns a Fiber middleware that authenticates the request.
// The resolver is called once; handlers read the identity from the
// request context instead of resolving again.
func Middleware(resolver identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}

		token := Credential(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing credentials"})
		}

		ident, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}

		c.SetUserContext(identity.WithIdentity(c.UserContext(), ident))

		return c.Next()
	}
}

// Credential extracts the presented credential: a bearer token if the
// Authorization header carries one, else the session cookie.
func Credential(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}

	return c.Cookies("session")
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}

	return false
}
