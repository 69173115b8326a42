package backend

import "github.com/prometheus/client_golang/prometheus"

var (
	opFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eppie",
		Subsystem: "backend",
		Name:      "operation_failures_total",
		Help:      "Backend operations that failed, by backend and operation.",
	}, []string{"backend", "op"})

	opSuccesses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eppie",
		Subsystem: "backend",
		Name:      "operations_total",
		Help:      "Backend operations that succeeded, by backend and operation.",
	}, []string{"backend", "op"})
)

func init() {
	prometheus.MustRegister(opFailures, opSuccesses)
}

// RecordOp feeds the fan-out counters. The mailbox calls it once per
// backend per operation.
func RecordOp(backendName, op string, err error) {
	if err != nil {
		opFailures.WithLabelValues(backendName, op).Inc()
		return
	}
	opSuccesses.WithLabelValues(backendName, op).Inc()
}
