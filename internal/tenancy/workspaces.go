package tenancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// CreateWorkspace creates a workspace under an organization.
func CreateWorkspace(ctx context.Context, db *gorm.DB, orgID, name, description string) (*models.Workspace, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrNameEmpty
	}

	workspace := models.Workspace{
		OrganizationID: orgID,
		Name:           name,
		Slug:           Slugify(name),
		Description:    description,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization

		err := tx.Where("id = ?", orgID).First(&org).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load organization: %w", err)
		}

		var count int64

		err = tx.Model(&models.Workspace{}).
			Where("organization_id = ? AND slug = ?", orgID, workspace.Slug).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}

		if count > 0 {
			return ErrSlugTaken
		}

		return tx.Create(&workspace).Error
	})
	if err != nil {
		return nil, err
	}

	return &workspace, nil
}

// GetWorkspace retrieves a live workspace by id.
func GetWorkspace(ctx context.Context, db *gorm.DB, id string) (*models.Workspace, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var workspace models.Workspace

	err := db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query workspace: %w", err)
	}

	return &workspace, nil
}

// DeleteWorkspace soft-deletes a workspace. Its rows remain but every
// tenancy lookup and permission walk stops resolving it. Deleting an
// already deleted workspace fails with ErrWorkspaceNotFound.
func DeleteWorkspace(ctx context.Context, db *gorm.DB, id string) error {
	if db == nil {
		return ErrDBNil
	}

	now := time.Now()

	result := db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", &now)
	if result.Error != nil {
		return fmt.Errorf("failed to delete workspace: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrWorkspaceNotFound
	}

	return nil
}

// UserWorkspaces returns the live workspaces a user is a member of.
func UserWorkspaces(ctx context.Context, db *gorm.DB, userID string) ([]models.Workspace, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var workspaces []models.Workspace

	err := db.WithContext(ctx).Table("workspaces").
		Joins("JOIN memberships ON memberships.workspace_id = workspaces.id").
		Where("memberships.user_id = ? AND workspaces.deleted_at IS NULL", userID).
		Order("workspaces.created_at ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query user workspaces: %w", err)
	}

	return workspaces, nil
}

// WorkspaceMembers returns the memberships of a workspace.
func WorkspaceMembers(ctx context.Context, db *gorm.DB, workspaceID string) ([]models.Membership, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var members []models.Membership

	err := db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	return members, nil
}
