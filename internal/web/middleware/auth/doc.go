// Package auth is the request authentication middleware. It resolves the
// presented credential to an identity exactly once per request and puts
// the result on the request context for all downstream handlers.
package auth
