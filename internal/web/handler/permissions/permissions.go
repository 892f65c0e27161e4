// Package permissions serves the caller's effective permission set.
package permissions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

// Path is the path of the permissions endpoint.
const Path = handler.APIPath + "/permissions"

// Service is the permissions handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the permissions handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the permissions handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *handler.Deps) {
	if app == nil || cfg == nil || db == nil || deps == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Get(Path, s.Get)
}

// Get serves the caller's effective permissions for a workspace: the
// union of every grant the caller holds at workspace, organization and
// system scope.
func (s *Service) Get(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return handler.Fail(c, store.ErrTenantRequired)
	}

	grants, err := s.deps.Perms.EffectivePermissions(c.UserContext(), caller.UserID, workspaceID)
	if err != nil {
		return handler.Fail(c, err)
	}

	roles, err := s.deps.Perms.RoleNamesFor(c.UserContext(), caller.UserID, workspaceID)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{
		"workspace_id": workspaceID,
		"roles":        roles,
		"grants":       grants.Sorted(),
	})
}
