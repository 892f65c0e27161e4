// Package roles manages role assignments and serves the assignment audit
// trail.
package roles

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/rbac"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

// Path is the base path of the role assignment endpoints.
const Path = handler.APIPath + "/roles/assignments"

var validate = validator.New() //nolint:gochecknoglobals

// AssignRequest is the body of an assignment grant.
type AssignRequest struct {
	UserID    string `json:"user_id"    validate:"required,uuid4"`
	Role      string `json:"role"       validate:"required"`
	ScopeType string `json:"scope_type" validate:"required,oneof=workspace organization system"`
	ScopeID   string `json:"scope_id"`
	Notes     string `json:"notes"`
}

// Service is the roles handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the roles handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the roles handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *handler.Deps) {
	if app == nil || cfg == nil || db == nil || deps == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Post(Path, s.Post)
	app.Delete(Path+"/:id", s.Delete)
	app.Get(Path, s.Get)
}

// Post grants a role at a scope. The grant is recorded with the calling
// user as the grantor.
func (s *Service) Post(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	var req AssignRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Role grants require administrative rights in the target scope; the
	// caller can never mint their own access.
	allowed, err := s.deps.Perms.CanAdministerScope(
		c.UserContext(), caller.UserID, models.ScopeType(req.ScopeType), req.ScopeID)
	if err != nil {
		return handler.Fail(c, err)
	}

	if !allowed {
		return handler.Fail(c, store.ErrUnauthorized)
	}

	assignment, err := s.deps.Perms.AssignRole(c.UserContext(), rbac.AssignParams{
		UserID:     req.UserID,
		Role:       req.Role,
		ScopeType:  models.ScopeType(req.ScopeType),
		ScopeID:    req.ScopeID,
		AssignedBy: caller.UserID,
		Notes:      req.Notes,
	})
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

// Delete revokes an assignment. The record stays in the audit trail with
// its revocation stamped.
func (s *Service) Delete(c *fiber.Ctx) error {
	caller, ok := identity.FromContext(c.UserContext())
	if !ok {
		return handler.Fail(c, store.ErrNoCaller)
	}

	assignment, err := s.deps.Perms.Assignment(c.UserContext(), c.Params("id"))
	if err != nil {
		return handler.Fail(c, err)
	}

	allowed, err := s.deps.Perms.CanAdministerScope(
		c.UserContext(), caller.UserID, assignment.ScopeType, assignment.ScopeID)
	if err != nil {
		return handler.Fail(c, err)
	}

	if !allowed {
		return handler.Fail(c, store.ErrUnauthorized)
	}

	if err := s.deps.Perms.Revoke(c.UserContext(), assignment.ID, caller.UserID); err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Get serves the assignment audit trail, newest first.
func (s *Service) Get(c *fiber.Ctx) error {
	filter := rbac.AuditFilter{
		UserID:         c.Query("user_id"),
		ScopeType:      models.ScopeType(c.Query("scope_type")),
		ScopeID:        c.Query("scope_id"),
		Role:           c.Query("role"),
		IncludeRevoked: c.QueryBool("include_revoked"),
		Limit:          c.QueryInt("limit"),
	}

	assignments, err := s.deps.Perms.Assignments(c.UserContext(), filter)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(fiber.Map{"assignments": assignments})
}
