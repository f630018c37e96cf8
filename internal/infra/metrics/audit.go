package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(auditEventsTotal, auditEventsDroppedTotal) }

var (
	auditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events emitted by the ledger, labeled by type.",
		},
		[]string{"type"},
	)

	auditEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Audit events dropped because the sink buffer was full.",
		},
	)
)

func IncAuditEvent(evType string) {
	auditEventsTotal.WithLabelValues(norm(evType)).Inc()
}

func IncAuditDropped() {
	auditEventsDroppedTotal.Inc()
}
