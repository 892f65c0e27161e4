package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/rbac"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/tenancy"
)

// StatusFor maps service errors to HTTP status codes. Authorization
// failures stay distinct from missing resources so clients can tell
// "access denied" from "does not exist".
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNoCaller),
		errors.Is(err, identity.ErrNoIdentity),
		errors.Is(err, identity.ErrSessionExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, store.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, rbac.ErrAssignmentNotFound),
		errors.Is(err, rbac.ErrWorkspaceNotFound),
		errors.Is(err, tenancy.ErrOrganizationNotFound),
		errors.Is(err, tenancy.ErrWorkspaceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rbac.ErrDuplicateAssignment),
		errors.Is(err, tenancy.ErrSlugTaken):
		return fiber.StatusConflict
	case errors.Is(err, store.ErrTenantRequired),
		errors.Is(err, rbac.ErrUnknownRole),
		errors.Is(err, rbac.ErrScopeMismatch),
		errors.Is(err, tenancy.ErrNameEmpty):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Fail writes a JSON error response with the mapped status code.
func Fail(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
