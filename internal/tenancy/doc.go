// Package tenancy provides CRUD operations for organizations and
// workspaces and the membership lookups other components scope by.
// Workspaces are soft-deleted only; a deleted workspace stops resolving
// for every tenancy and permission query but its rows remain.
package tenancy
