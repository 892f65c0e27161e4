// Package store is the resource store boundary: scoped reads, guarded
// writes and the per-tenant change feed. The gorm implementation is the
// single enforcement point for compiled policies; no component reads or
// writes resource rows around it. Writes publish change events to the
// redis feed after they commit.
package store
