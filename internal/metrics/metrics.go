// Package metrics exposes Prometheus instrumentation for lead imports and
// mutations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import outcomes.
const (
	OutcomeImported = "imported"
	OutcomeNoRows   = "no_valid_rows"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "commit_failed"
)

// Metrics holds the collectors registered for one registry.
type Metrics struct {
	Imports        *prometheus.CounterVec
	ImportRows     *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	LeadMutations  *prometheus.CounterVec
}

// New registers all collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbook_imports_total",
			Help: "Total number of bulk imports by outcome",
		}, []string{"outcome"}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbook_import_rows_total",
			Help: "Rows seen by bulk imports, by result (imported or rejected)",
		}, []string{"result"}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadbook_import_duration_seconds",
			Help:    "Duration of bulk imports from parse to commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		LeadMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbook_lead_mutations_total",
			Help: "Lead mutations by audit action",
		}, []string{"action"}),
	}
}

// ObserveImport records one finished import.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveImport(start time.Time, outcome string, imported, rejected int) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(outcome).Inc()
	m.ImportRows.WithLabelValues("imported").Add(float64(imported))
	m.ImportRows.WithLabelValues("rejected").Add(float64(rejected))
	m.ImportDuration.Observe(time.Since(start).Seconds())
}

// IncrementMutation records a create, update, import or delete.
func (m *Metrics) IncrementMutation(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LeadMutations.WithLabelValues(action).Add(float64(n))
}
