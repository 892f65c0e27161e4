package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleAction is the data-access verb an access rule or compiled policy
// governs.
type RuleAction string

const (
	// ActionCreate governs row inserts.
	ActionCreate RuleAction = "create"
	// ActionRead governs row selects.
	ActionRead RuleAction = "read"
	// ActionUpdate governs row updates.
	ActionUpdate RuleAction = "update"
	// ActionDelete governs row deletes.
	ActionDelete RuleAction = "delete"
)

// AccessRule is a declared, versioned row-level access rule.
// Rules accumulate over time: several rules may target the same table and
// action, each added by a different migration. They are never evaluated
// directly; the policy compiler consolidates the full set into one
// predicate per (table, action, audience) before anything is enforced.
//
// Predicate expressions may call auth_caller_id() to reference the caller.
// The compiler rewrites every such call to a single bound parameter so the
// identity resolver runs once per query instead of once per row.
type AccessRule struct {
	// ID is the unique identifier for the rule.
	ID string `gorm:"primaryKey;size:36"`
	// Table is the resource table the rule applies to.
	Table string `gorm:"column:table_name;size:100;not null;index:idx_rule_table"`
	// Action is the governed verb (create, read, update or delete).
	Action RuleAction `gorm:"type:varchar(10);not null;index:idx_rule_table"`
	// Roles is the comma-separated audience of role names the rule grants to.
	Roles string `gorm:"size:255;not null"`
	// Expr is the permissive predicate; rows matching it are granted.
	Expr string `gorm:"size:2000;not null"`
	// AllowDeleted opts a read rule out of the default soft-delete exclusion.
	AllowDeleted bool `gorm:"default:false"`
	// CreatedAt is the timestamp when the rule was declared (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the AccessRule model.
func (AccessRule) TableName() string {
	return "access_rules"
}

// BeforeCreate assigns a UUID primary key when none was set.
func (r *AccessRule) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	return nil
}
