package identity

import "errors"

var (
	// ErrNoIdentity is returned when a credential does not resolve to any caller.
	ErrNoIdentity = errors.New("no identity for credential")

	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrUserAccountDisabled is returned when the resolved user account is inactive.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during login.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrOIDCDisabled is returned when OIDC resolution is disabled via configuration.
	ErrOIDCDisabled = errors.New("oidc resolution is disabled")
)
