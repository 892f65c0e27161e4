package policy

import "errors"

var (
	// ErrCompilationFailed is returned when any rule in a batch is
	// malformed. The whole batch aborts; nothing is installed.
	ErrCompilationFailed = errors.New("policy compilation failed")

	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
