// Package daemon wires the service together: database, schema migration,
// seeding, policy compilation, identity resolution, the change feed and
// the web service.
package daemon
