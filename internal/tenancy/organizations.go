package tenancy

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// CreateOrganization creates a new organization with a slug derived from
// its name.
func CreateOrganization(ctx context.Context, db *gorm.DB, name string) (*models.Organization, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrNameEmpty
	}

	org := models.Organization{
		Name: name,
		Slug: Slugify(name),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64

		if err := tx.Model(&models.Organization{}).Where("slug = ?", org.Slug).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}

		if count > 0 {
			return ErrSlugTaken
		}

		return tx.Create(&org).Error
	})
	if err != nil {
		return nil, err
	}

	return &org, nil
}

// GetOrganization retrieves an organization by id.
func GetOrganization(ctx context.Context, db *gorm.DB, id string) (*models.Organization, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var org models.Organization

	err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query organization: %w", err)
	}

	return &org, nil
}

// OrganizationWorkspaces returns the live workspaces owned by an organization.
func OrganizationWorkspaces(ctx context.Context, db *gorm.DB, orgID string) ([]models.Workspace, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var workspaces []models.Workspace

	err := db.WithContext(ctx).
		Where("organization_id = ? AND deleted_at IS NULL", orgID).
		Order("created_at ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}

	return workspaces, nil
}
