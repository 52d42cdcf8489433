// Package metrics exposes Prometheus counters for the sync pipeline and the
// categorization resolver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts item sync attempts by terminal status
	// (ok, error).
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budget",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Item sync runs by terminal status.",
	}, []string{"status"})

	// SyncTransactions counts individual record outcomes inside sync runs
	// (added, modified, removed, skipped, failed).
	SyncTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budget",
		Subsystem: "sync",
		Name:      "transactions_total",
		Help:      "Transactions processed during sync by outcome.",
	}, []string{"outcome"})

	// Categorizations counts resolver decisions by source
	// (rule, pattern, keyword, none).
	Categorizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budget",
		Subsystem: "categorizer",
		Name:      "resolutions_total",
		Help:      "Category resolutions by source.",
	}, []string{"source"})

	// Reinforcements counts pattern learning events by outcome
	// (created, strengthened, overwritten).
	Reinforcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budget",
		Subsystem: "categorizer",
		Name:      "reinforcements_total",
		Help:      "Learned pattern updates by outcome.",
	}, []string{"outcome"})
)
