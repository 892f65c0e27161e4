package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompiledPolicy is the policy compiler's output: exactly one permissive
// predicate per (table, action, audience). The enforcement layer treats
// these rows as read-only configuration; only the compiler installs or
// retires them. The checksum lets re-compilation skip unchanged policies
// so re-running the compiler is a no-op.
type CompiledPolicy struct {
	// ID is the unique identifier for the policy.
	ID string `gorm:"primaryKey;size:36"`
	// Table is the resource table the policy guards.
	// Combined with Action and Audience, this forms a unique constraint.
	Table string `gorm:"column:table_name;size:100;not null;uniqueIndex:idx_policy_key"`
	// Action is the governed verb.
	Action RuleAction `gorm:"type:varchar(10);not null;uniqueIndex:idx_policy_key"`
	// Audience is the sorted, comma-separated set of role names the policy
	// applies to.
	Audience string `gorm:"size:255;not null;uniqueIndex:idx_policy_key"`
	// Expr is the consolidated predicate. Caller references appear as the
	// @caller_id named parameter, bound once per query.
	Expr string `gorm:"size:4000;not null"`
	// Checksum is a deterministic digest of (table, action, audience, expr).
	Checksum string `gorm:"size:64;not null"`
	// CompiledAt is the timestamp of the compilation run that produced the policy.
	CompiledAt time.Time
}

// TableName specifies the database table name for the CompiledPolicy model.
func (CompiledPolicy) TableName() string {
	return "compiled_policies"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (p *CompiledPolicy) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return nil
}
