package dataview

import "sort"

// Temporal columns get newest-first ordering; everything else is served
// ascending.
const (
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// ViewConfig maps a named view onto a store collection and its default
// ordering column.
type ViewConfig struct {
	View       string
	Collection string
	OrderBy    string
}

// views is the static view registry. View names are what clients ask
// for; collections are what the store reads.
var views = map[string]ViewConfig{ //nolint:gochecknoglobals
	"projects":   {View: "projects", Collection: "projects", OrderBy: ColumnCreatedAt},
	"tasks":      {View: "tasks", Collection: "project_tasks", OrderBy: ColumnUpdatedAt},
	"milestones": {View: "milestones", Collection: "project_milestones", OrderBy: "due_at"},
	"events":     {View: "events", Collection: "events", OrderBy: "starts_at"},
	"call-sheets": {
		View:       "call-sheets",
		Collection: "call_sheets",
		OrderBy:    "event_date",
	},
	"people":   {View: "people", Collection: "personnel", OrderBy: "last_name"},
	"assets":   {View: "assets", Collection: "assets", OrderBy: ColumnCreatedAt},
	"budgets":  {View: "budgets", Collection: "budgets", OrderBy: ColumnUpdatedAt},
	"invoices": {View: "invoices", Collection: "finance_invoices", OrderBy: ColumnCreatedAt},
	"vendors":  {View: "vendors", Collection: "company_vendors", OrderBy: "name"},
	"files":    {View: "files", Collection: "files", OrderBy: ColumnCreatedAt},
}

// Collections returns the distinct registered collections, sorted.
func Collections() []string {
	seen := make(map[string]struct{}, len(views))
	for _, cfg := range views {
		seen[cfg.Collection] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for collection := range seen {
		out = append(out, collection)
	}

	sort.Strings(out)

	return out
}

// Lookup resolves a view name. Unregistered names report false; they are
// never forwarded to the store.
func Lookup(view string) (ViewConfig, bool) {
	cfg, ok := views[view]

	return cfg, ok
}

// descendingOrder reports whether a column is served newest-first.
func descendingOrder(column string) bool {
	return column == ColumnCreatedAt || column == ColumnUpdatedAt
}
