package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace is the operational tenant unit. Nearly every domain resource
// carries a workspace_id referencing one of these rows, and all row-level
// policies scope visibility through it.
// Workspaces are never hard-deleted; DeletedAt marks them removed.
type Workspace struct {
	// ID is the unique identifier for the workspace.
	ID string `gorm:"primaryKey;size:36"`
	// OrganizationID is the owning organization.
	// Combined with Slug, this forms a unique constraint.
	OrganizationID string `gorm:"size:36;not null;uniqueIndex:idx_org_slug"`
	// Name is the display name of the workspace.
	Name string `gorm:"size:255;not null"`
	// Slug is the URL-safe identifier, unique within the organization.
	Slug string `gorm:"size:100;not null;uniqueIndex:idx_org_slug"`
	// Description provides a human-readable summary of the workspace.
	Description string `gorm:"size:255"`
	// Organization is the owning organization (loaded via foreign key).
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the workspace was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the workspace was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker (nil while the workspace is live).
	DeletedAt *time.Time `gorm:"index"`
}

// TableName specifies the database table name for the Workspace model.
func (Workspace) TableName() string {
	return "workspaces"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (w *Workspace) BeforeCreate(_ *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	return nil
}

// Live reports whether the workspace has not been soft-deleted.
func (w *Workspace) Live() bool {
	return w.DeletedAt == nil
}
