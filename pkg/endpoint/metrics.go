package endpoint

import (
	"github.com/prometheus/client_golang/prometheus"

	"rtps-go/internal/metrics"
)

var (
	gapsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "endpoint",
		Name:      "gaps_emitted_total",
		Help:      "GAP submessages emitted for writer-cache misses, by writer GUID entity kind.",
	}, []string{"entity_kind"})

	retransmitsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "endpoint",
		Name:      "retransmits_emitted_total",
		Help:      "DATA/GAP submessages emitted while repairing a NACKed ReaderProxy.",
	}, []string{"entity_kind"})

	staleCountsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "endpoint",
		Name:      "stale_counts_dropped_total",
		Help:      "ACKNACK/HEARTBEAT messages dropped for carrying a count no greater than the last one seen.",
	}, []string{"submessage"})

	statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "endpoint",
		Name:      "status_transitions_total",
		Help:      "Deadline/liveliness status transitions raised by a writer or reader's periodic check.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(gapsEmitted, retransmitsEmitted, staleCountsDropped, statusTransitions)
}
