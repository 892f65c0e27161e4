// Package main provides the entry point for the ATLVS core service.
// It runs the multi-tenant authorization and live-synchronization layer:
// a role/permission model resolved across workspace, organization and
// system scopes, a policy compiler that consolidates declared access rules
// into one row-level predicate per table, action and audience, and a
// tenant-scoped data access layer that keeps view data live through a
// change feed. Persistence uses gorm, the HTTP surface uses Fiber.
package main
