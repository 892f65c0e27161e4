// Package identity resolves a request's bearer credential to a stable
// caller identity. Resolution happens once per operation: the web layer
// resolves the token at the boundary and attaches the identity to the
// request context, and every downstream consumer (the permission service,
// the resource store's policy enforcement) reads it from there instead of
// resolving again per row or per check.
package identity
