package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScopeType identifies the level of the scope hierarchy a role assignment
// applies to.
type ScopeType string

const (
	// ScopeWorkspace scopes an assignment to a single workspace.
	ScopeWorkspace ScopeType = "workspace"
	// ScopeOrganization scopes an assignment to an organization and all
	// workspaces it owns.
	ScopeOrganization ScopeType = "organization"
	// ScopeSystem scopes an assignment platform-wide.
	ScopeSystem ScopeType = "system"
)

// RoleAssignment is the immutable audit record of a role grant.
// Assignments are never mutated; a grant is withdrawn by setting RevokedAt,
// and any change of role produces a new assignment record. This keeps the
// full who/what/where/when/by-whom history queryable for compliance review.
type RoleAssignment struct {
	// ID is the unique identifier for the assignment.
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the user the role was granted to.
	UserID string `gorm:"size:36;not null;index:idx_assignment_user"`
	// Role is the name of the granted role.
	Role string `gorm:"size:100;not null"`
	// ScopeType is the level the grant applies at (workspace, organization or system).
	ScopeType ScopeType `gorm:"type:varchar(20);not null"`
	// ScopeID is the workspace or organization id; empty for system scope.
	ScopeID string `gorm:"size:36;index:idx_assignment_scope"`
	// AssignedBy is the user who granted the role; empty for system-seeded grants.
	AssignedBy string `gorm:"size:36"`
	// AssignedAt is the timestamp of the grant.
	AssignedAt time.Time
	// Notes carries free-form context recorded at grant time.
	Notes string `gorm:"size:255"`
	// RevokedAt marks the assignment revoked (soft delete); nil while active.
	RevokedAt *time.Time `gorm:"index"`
	// RevokedBy is the user who revoked the assignment.
	RevokedBy string `gorm:"size:36"`
}

// TableName specifies the database table name for the RoleAssignment model.
func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (a *RoleAssignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}

	return nil
}

// Active reports whether the assignment has not been revoked.
func (a *RoleAssignment) Active() bool {
	return a.RevokedAt == nil
}
