package store

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks any applicable
	// policy or permission for the operation. It is deliberately distinct
	// from ErrNotFound so clients can render "access denied" instead of
	// "does not exist".
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a mutation targets a row that does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrNoCaller is returned when no identity was resolved for the operation.
	ErrNoCaller = errors.New("no caller identity")

	// ErrTenantRequired is returned when a read or write carries no workspace id.
	ErrTenantRequired = errors.New("workspace id is required")

	// ErrUnknownOp is returned for a mutation with an unsupported operation.
	ErrUnknownOp = errors.New("unknown mutation operation")
)
