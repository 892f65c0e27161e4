package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/dataview"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/rbac"
	"github.com/ghxstship/atlvs/internal/store"
)

// Deps bundles the services handlers depend on.
type Deps struct {
	// Resolver maps presented credentials to identities.
	Resolver identity.Resolver

	// Local issues and revokes password login sessions.
	Local *identity.LocalResolver

	// Perms is the role assignment and permission service.
	Perms *rbac.Service

	// Views serves tenant-scoped view queries.
	Views *dataview.Manager

	// Store is the policy-enforcing resource store.
	Store store.Store
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *Deps)
}
