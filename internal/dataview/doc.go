// Package dataview serves named, tenant-scoped views over the resource
// store and keeps them live through the change feed. Every query carries
// the workspace key; a view with no resolved workspace returns nothing.
package dataview
