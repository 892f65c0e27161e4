// Package views serves tenant-scoped view queries and row mutations.
package views

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/dataview"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

// Path is the base path of the view endpoints.
const Path = handler.APIPath + "/views"

// MutationRequest is the body of a row insert or update.
type MutationRequest struct {
	WorkspaceID string                 `json:"workspace_id"`
	Values      map[string]interface{} `json:"values"`
}

// Service is the views handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the views handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the views handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, deps *handler.Deps) {
	if app == nil || cfg == nil || db == nil || deps == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Get(Path+"/:view", s.Get)
	app.Post(Path+"/:view/rows", s.PostRow)
	app.Patch(Path+"/:view/rows/:id", s.PatchRow)
	app.Delete(Path+"/:view/rows/:id", s.DeleteRow)
}

// Get serves one snapshot of a view. Query parameters other than
// workspace_id become equality filters.
func (s *Service) Get(c *fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")

	filter := make(map[string]interface{})

	for key, value := range c.Queries() {
		if key == "workspace_id" {
			continue
		}

		filter[key] = value
	}

	result, err := s.deps.Views.Query(c.UserContext(), c.Params("view"), workspaceID, filter)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(result)
}

// PostRow inserts a row into the view's collection.
func (s *Service) PostRow(c *fiber.Ctx) error {
	var req MutationRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	cfg, ok := dataview.Lookup(c.Params("view"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown view"})
	}

	row, err := s.deps.Store.Write(c.UserContext(), store.Mutation{
		Collection:  cfg.Collection,
		Op:          store.OpInsert,
		WorkspaceID: req.WorkspaceID,
		Values:      req.Values,
	})
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(row)
}

// PatchRow updates a row in the view's collection.
func (s *Service) PatchRow(c *fiber.Ctx) error {
	var req MutationRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	cfg, ok := dataview.Lookup(c.Params("view"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown view"})
	}

	row, err := s.deps.Store.Write(c.UserContext(), store.Mutation{
		Collection:  cfg.Collection,
		Op:          store.OpUpdate,
		WorkspaceID: req.WorkspaceID,
		RowID:       c.Params("id"),
		Values:      req.Values,
	})
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(row)
}

// DeleteRow deletes a row from the view's collection.
func (s *Service) DeleteRow(c *fiber.Ctx) error {
	cfg, ok := dataview.Lookup(c.Params("view"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown view"})
	}

	_, err := s.deps.Store.Write(c.UserContext(), store.Mutation{
		Collection:  cfg.Collection,
		Op:          store.OpDelete,
		WorkspaceID: c.Query("workspace_id"),
		RowID:       c.Params("id"),
	})
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
