package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the top-level billing and tenant-group entity.
// An organization owns one or more workspaces; organization-scoped role
// assignments widen a member's permissions across all of them.
type Organization struct {
	// ID is the unique identifier for the organization.
	ID string `gorm:"primaryKey;size:36"`
	// Name is the display name of the organization.
	Name string `gorm:"size:255;not null"`
	// Slug is the unique, URL-safe identifier for the organization.
	Slug string `gorm:"unique;size:100;not null"`
	// CreatedAt is the timestamp when the organization was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the organization was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Organization model.
func (Organization) TableName() string {
	return "organizations"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	return nil
}
