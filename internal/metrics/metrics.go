// Package metrics exposes Prometheus collectors for position allocation,
// renumbering and imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	allocations *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	renumbered  prometheus.Counter
	imports     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larder",
			Name:      "positions_allocated_total",
			Help:      "Positions handed out, by level.",
		}, []string{"level"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larder",
			Name:      "level_exhausted_total",
			Help:      "Allocations refused because the level was full, by level.",
		}, []string{"level"}),
		renumbered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "larder",
			Name:      "entries_renumbered_total",
			Help:      "Entries whose position changed during renumbering.",
		}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larder",
			Name:      "imports_total",
			Help:      "Imported recipe documents, by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.allocations, m.exhausted, m.renumbered, m.imports} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Allocated records a successful allocation at level.
func (m *Metrics) Allocated(level string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(level).Inc()
}

// Exhausted records an allocation refused at level.
func (m *Metrics) Exhausted(level string) {
	if m == nil {
		return
	}
	m.exhausted.WithLabelValues(level).Inc()
}

// Renumbered records n rewritten entries.
func (m *Metrics) Renumbered(n int) {
	if m == nil {
		return
	}
	m.renumbered.Add(float64(n))
}

// Imported records the outcome of one document import.
func (m *Metrics) Imported(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.imports.WithLabelValues(result).Inc()
}
