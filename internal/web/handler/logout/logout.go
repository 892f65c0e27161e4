// Package logout revokes session tokens.
package logout

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/web/handler"
	authmw "github.com/ghxstship/atlvs/internal/web/middleware/auth"
)

// Path is the path of the logout endpoint.
const Path = handler.APIPath + "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the logout handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *handler.Deps) {
	if app == nil || cfg == nil || db == nil || deps == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Post(Path, s.Post)
}

// Post revokes the presented session token. Revoking an already revoked
// token succeeds.
func (s *Service) Post(c *fiber.Ctx) error {
	token := authmw.Credential(c)
	if token != "" {
		if err := s.deps.Local.Logout(c.UserContext(), token); err != nil {
			return handler.Fail(c, err)
		}

		// Drop the credential from the resolver cache too, so the token
		// stops resolving now instead of at cache expiry.
		if inv, ok := s.deps.Resolver.(identity.Invalidator); ok {
			inv.Invalidate(token)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.SendStatus(fiber.StatusNoContent)
}
