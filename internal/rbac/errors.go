package rbac

import "errors"

var (
	// ErrUnknownRole is returned when an assignment references a role that is not defined.
	ErrUnknownRole = errors.New("unknown role")

	// ErrScopeMismatch is returned when a role is assigned at a scope level it is not defined for.
	ErrScopeMismatch = errors.New("role can not be assigned at this scope")

	// ErrDuplicateAssignment is returned when an identical active (user, role, scope) assignment already exists.
	ErrDuplicateAssignment = errors.New("assignment already exists")

	// ErrAssignmentNotFound is returned when an assignment does not exist or was already revoked.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrWorkspaceNotFound is returned when a scope id does not reference a live workspace.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
