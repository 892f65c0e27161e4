package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership binds a user identity to a workspace (and transitively its
// organization) with a primary role. Row-level policies test this relation:
// a caller may only touch a resource row when a membership links the caller
// to the row's workspace_id.
// A user holds at most one primary role per workspace; additional
// organization-scoped role assignments widen, never narrow, the effective
// permissions.
type Membership struct {
	// ID is the unique identifier for the membership.
	ID string `gorm:"primaryKey;size:36"`
	// WorkspaceID is the workspace the user belongs to.
	// Combined with UserID, this forms a unique constraint.
	WorkspaceID string `gorm:"size:36;not null;uniqueIndex:idx_workspace_user"`
	// OrganizationID is the workspace's owning organization, denormalized
	// so organization-wide lookups avoid a join.
	OrganizationID string `gorm:"size:36;not null;index"`
	// UserID is the member's user identity.
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_workspace_user"`
	// Role is the name of the member's primary workspace role.
	Role string `gorm:"size:100;not null"`
	// JoinedAt is the timestamp when the membership was established.
	JoinedAt time.Time
	// Workspace is the associated workspace (loaded via foreign key).
	Workspace Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the Membership model.
func (Membership) TableName() string {
	return "memberships"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (m *Membership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}

	return nil
}
