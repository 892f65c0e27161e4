package dataview

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ghxstship/atlvs/internal/store"
)

// Manager serves view queries and owns the live subscriptions. Every
// fetch for a (view, workspace) pair gets a monotonically increasing
// sequence number; subscriptions use it to discard results that were
// overtaken by a newer fetch.
type Manager struct {
	store store.Store

	mu   sync.Mutex
	seqs map[string]uint64
	subs map[string]*Subscription
}

// NewManager creates a view manager over the given store.
func NewManager(st store.Store) *Manager {
	return &Manager{
		store: st,
		seqs:  make(map[string]uint64),
		subs:  make(map[string]*Subscription),
	}
}

// Result is one served snapshot of a view.
type Result struct {
	View string      `json:"view"`
	Seq  uint64      `json:"seq"`
	Rows []store.Row `json:"rows"`
}

// Query serves a single snapshot of a view. An empty workspace id means
// the tenant is not resolved yet; the view is served empty rather than
// unscoped.
func (m *Manager) Query(ctx context.Context, view, workspaceID string, filter map[string]interface{}) (Result, error) {
	cfg, ok := Lookup(view)
	if !ok {
		// Unknown views never reach the store; they are served empty.
		log.Warn().Str("view", view).Msg("Unknown view requested")

		return Result{View: view, Rows: []store.Row{}}, nil
	}

	if workspaceID == "" {
		return Result{View: cfg.View, Rows: []store.Row{}}, nil
	}

	seq := m.nextSeq(subKey(cfg.View, workspaceID))

	q := store.Query{
		Collection: cfg.Collection,
		Filter:     map[string]interface{}{"workspace_id": workspaceID},
		Order: []store.Order{
			{Field: cfg.OrderBy, Descending: descendingOrder(cfg.OrderBy)},
		},
	}

	for field, value := range filter {
		// The tenant key always comes from the resolved workspace.
		if field == "workspace_id" {
			continue
		}

		q.Filter[field] = value
	}

	rows, err := m.store.Read(ctx, q)
	if err != nil {
		return Result{}, err
	}

	queriesTotal.WithLabelValues(cfg.View).Inc()

	return Result{View: cfg.View, Seq: seq, Rows: rows}, nil
}

func (m *Manager) nextSeq(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seqs[key]++

	return m.seqs[key]
}

func subKey(view, workspaceID string) string {
	return view + "|" + workspaceID
}
