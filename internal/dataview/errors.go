package dataview

import "errors"

var (
	// ErrTerminated is returned when binding a subscription that was
	// already torn down.
	ErrTerminated = errors.New("subscription is terminated")

	// ErrAlreadyBound is returned when binding a subscription twice.
	ErrAlreadyBound = errors.New("subscription is already bound")
)
