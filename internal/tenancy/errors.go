package tenancy

import "errors"

var (
	// ErrOrganizationNotFound is returned when an organization does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrWorkspaceNotFound is returned when a workspace does not exist or was deleted.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrNameEmpty is returned when creating an organization or workspace without a name.
	ErrNameEmpty = errors.New("name cannot be empty")

	// ErrSlugTaken is returned when the derived slug already exists in the scope.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
