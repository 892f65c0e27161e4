package store

import (
	"context"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// Row is a resource row as the store returns it.
type Row map[string]interface{}

// Order is one ordering term of a read.
type Order struct {
	Field      string
	Descending bool
}

// Query describes a scoped read.
type Query struct {
	// Collection is the backing table.
	Collection string
	// Filter holds equality constraints. The workspace_id entry is the
	// tenant key and must always be present.
	Filter map[string]interface{}
	// Order is applied in sequence.
	Order []Order
	// IncludeDeleted asks for soft-deleted rows too. Honored only when
	// the caller holds the view-deleted grant.
	IncludeDeleted bool
}

// ChangeOp describes what a change event or mutation does to a row.
type ChangeOp string

const (
	// OpInsert is a row insert.
	OpInsert ChangeOp = "insert"
	// OpUpdate is a row update.
	OpUpdate ChangeOp = "update"
	// OpDelete is a row delete.
	OpDelete ChangeOp = "delete"
)

// Mutation describes a single-row write.
type Mutation struct {
	Collection  string
	Op          ChangeOp
	WorkspaceID string
	// RowID targets the row for update and delete.
	RowID string
	// Values are the column values for insert and update.
	Values Row
}

// Event is one change notification on a (collection, tenant) feed.
type Event struct {
	Op          ChangeOp `json:"op"`
	Collection  string   `json:"collection"`
	WorkspaceID string   `json:"workspace_id"`
	RowID       string   `json:"row_id"`
}

// Feed is an open change-notification channel. Close releases the
// underlying transport subscription; the Events channel closes after.
type Feed interface {
	Events() <-chan Event
	Close() error
}

// Store is the resource store contract. The implementation applies
// compiled policies to every read and write; callers never bypass it.
type Store interface {
	// Read executes a tenant-scoped read under the caller's compiled
	// read policies.
	Read(ctx context.Context, q Query) ([]Row, error)

	// Write applies a single-row mutation under the caller's compiled
	// policies and publishes a change event on success.
	Write(ctx context.Context, m Mutation) (Row, error)

	// ChangeFeed opens a change-notification channel scoped to one
	// collection and tenant.
	ChangeFeed(ctx context.Context, collection, workspaceID string) (Feed, error)
}

// actionFor maps a mutation op to the policy action it is governed by.
func actionFor(op ChangeOp) (models.RuleAction, bool) {
	switch op {
	case OpInsert:
		return models.ActionCreate, true
	case OpUpdate:
		return models.ActionUpdate, true
	case OpDelete:
		return models.ActionDelete, true
	default:
		return "", false
	}
}
