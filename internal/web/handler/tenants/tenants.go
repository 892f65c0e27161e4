// Package tenants manages organizations, workspaces and onboarding.
package tenants

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/tenancy"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

const (
	// OrganizationsPath is the base path of the organization endpoints.
	OrganizationsPath = handler.APIPath + "/organizations"

	// WorkspacesPath is the base path of the workspace endpoints.
	WorkspacesPath = handler.APIPath + "/workspaces"
)

var validate = validator.New() //nolint:gochecknoglobals

// OnboardRequest creates an organization with its first workspace. The
// calling user becomes owner of the workspace and creator of the
// organization.
type OnboardRequest struct {
	Name          string `json:"name"           validate:"required"`
	WorkspaceName string `json:"workspace_name" validate:"required"`
}

// WorkspaceRequest creates a workspace inside an existing organization.
type WorkspaceRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid4"`
	Name           string `json:"name"            validate:"required"`
	Description    string `json:"description"`
}

// Service is the tenants handler service.
type Service struct {
	handler.Service
	db   *gorm.DB
	deps *handler.Deps
}

// Handler is the tenants handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the tenants handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *handler.Deps) {
	if app == nil || cfg == nil || db == nil || deps == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.deps = deps

	app.Post(OrganizationsPath, s.PostOrganization)
	app.Get(OrganizationsPath+"/:id/workspaces", s.GetOrganizationWorkspaces)
	app.Post(WorkspacesPath, s.PostWorkspace)
	app.Get(WorkspacesPath, s.GetWorkspaces)
	app.Get(WorkspacesPath+"/:id/members", s.GetMembers)
	app.Delete(WorkspacesPath+"/:id", s.DeleteWorkspace)
}

// PostOrganization onboards a new organization with its first workspace.
func (s *Service) PostOrganization(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	var req OnboardRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := tenancy.Onboard(c.UserContext(), s.db, caller.UserID, req.Name, req.WorkspaceName)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetOrganizationWorkspaces lists the live workspaces of an organization.
func (s *Service) GetOrganizationWorkspaces(c *fiber.Ctx) error {
	workspaces, err := tenancy.OrganizationWorkspaces(c.UserContext(), s.db, c.Params("id"))
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"workspaces": workspaces})
}

// PostWorkspace creates a workspace inside an organization. Only the
// organization's creator or a platform operator may add workspaces.
func (s *Service) PostWorkspace(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	var req WorkspaceRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	allowed, err := s.deps.Perms.CanAdministerScope(
		c.UserContext(), caller.UserID, models.ScopeOrganization, req.OrganizationID)
	if err != nil {
		return handler.Fail(c, err)
	}

	if !allowed {
		return handler.Fail(c, store.ErrUnauthorized)
	}

	workspace, err := tenancy.CreateWorkspace(c.UserContext(), s.db, req.OrganizationID, req.Name, req.Description)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

// GetWorkspaces lists the live workspaces the caller is a member of.
func (s *Service) GetWorkspaces(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	workspaces, err := tenancy.UserWorkspaces(c.UserContext(), s.db, caller.UserID)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"workspaces": workspaces})
}

// GetMembers lists the memberships of a workspace.
func (s *Service) GetMembers(c *fiber.Ctx) error {
	members, err := tenancy.WorkspaceMembers(c.UserContext(), s.db, c.Params("id"))
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"members": members})
}

// DeleteWorkspace soft-deletes a workspace. Memberships and history stay
// in place; the workspace just stops resolving. The caller must hold the
// workspace lifecycle grant there.
func (s *Service) DeleteWorkspace(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	set, err := s.deps.Perms.EffectivePermissions(c.UserContext(), caller.UserID, c.Params("id"))
	if err != nil {
		return handler.Fail(c, err)
	}

	if !set.CanManageWorkspace() {
		return handler.Fail(c, store.ErrUnauthorized)
	}

	if err := tenancy.DeleteWorkspace(c.UserContext(), s.db, c.Params("id")); err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
