package dataview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "dataview_queries_total",
			Help: "Number of view queries served, differentiated by view.",
		},
		[]string{"view"},
	)

	changeEventsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "dataview_change_events_total",
			Help: "Number of change events received by live subscriptions.",
		},
		[]string{"view"},
	)

	staleDiscardsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "dataview_stale_discards_total",
			Help: "Number of refetch results discarded because a newer fetch already applied.",
		},
		[]string{"view"},
	)
)
