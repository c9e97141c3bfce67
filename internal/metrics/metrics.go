package metrics

import "github.com/prometheus/client_golang/prometheus"

// Inventory holds the counters shared by the accounting service and the
// checkout workflow. A nil *Inventory is valid and records nothing.
type Inventory struct {
	conflicts            *prometheus.CounterVec
	retries              *prometheus.CounterVec
	unavailable          *prometheus.CounterVec
	compensationFailures prometheus.Counter
}

func NewInventory(reg prometheus.Registerer) *Inventory {
	m := &Inventory{
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_write_conflicts_total",
			Help: "Inventory writes rejected because the record changed concurrently.",
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_retries_total",
			Help: "Retries performed after a concurrent modification.",
		}, []string{"step"}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_unavailable_total",
			Help: "Requests rejected for insufficient stock.",
		}, []string{"operation"}),
		compensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_compensation_failures_total",
			Help: "Inventory compensations abandoned and left for manual correction.",
		}),
	}
	reg.MustRegister(m.conflicts, m.retries, m.unavailable, m.compensationFailures)
	return m
}

func (m *Inventory) Conflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *Inventory) Retry(step string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(step).Inc()
}

func (m *Inventory) Unavailable(operation string) {
	if m == nil {
		return
	}
	m.unavailable.WithLabelValues(operation).Inc()
}

func (m *Inventory) CompensationFailed() {
	if m == nil {
		return
	}
	m.compensationFailures.Inc()
}
