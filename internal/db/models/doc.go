// Package models contains the database model definitions for the
// authorization core: tenancy (organizations, workspaces, memberships),
// the auditable role assignment records, declared access rules and their
// compiled policies, and user identities.
package models
