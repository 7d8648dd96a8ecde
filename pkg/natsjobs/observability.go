package natsjobs

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natsjobs_enqueued_total",
			Help: "Total number of jobs pushed onto a priority stream",
		},
		[]string{"namespace", "priority"},
	)

	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natsjobs_processed_total",
			Help: "Total number of ack decisions applied by the ack coordinator",
		},
		[]string{"namespace", "priority", "decision"},
	)

	jobsRetryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natsjobs_retry_total",
			Help: "Total number of Nak-with-delay decisions",
		},
		[]string{"namespace", "priority"},
	)

	jobsDLQTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natsjobs_dlq_total",
			Help: "Total number of records published to the dead-letter stream",
		},
		[]string{"namespace", "dlq_reason"},
	)

	jobsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "natsjobs_inflight",
			Help: "Current number of fetched, not-yet-finalized messages per priority",
		},
		[]string{"namespace", "priority"},
	)

	pollerSweepEmptyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natsjobs_poller_sweep_empty_total",
			Help: "Total number of full High/Medium/Low sweeps that yielded zero messages",
		},
		[]string{"namespace"},
	)

	ackDecisionQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "natsjobs_ack_decision_queue_depth",
			Help: "Current depth of the bounded ack-decision channel",
		},
		[]string{"namespace"},
	)
)

func recordJobEnqueued(namespace string, priority Priority) {
	jobsEnqueuedTotal.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), priority.String()).Inc()
}

func recordJobProcessed(namespace string, priority Priority, decision string) {
	jobsProcessedTotal.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), priority.String(), decision).Inc()
}

func recordJobRetry(namespace string, priority Priority) {
	jobsRetryTotal.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), priority.String()).Inc()
}

func recordJobDLQ(namespace string, reason DLQReason) {
	jobsDLQTotal.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), string(reason)).Inc()
}

func incrementJobInFlight(namespace string, priority Priority) {
	jobsInFlight.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), priority.String()).Inc()
}

func decrementJobInFlight(namespace string, priority Priority) {
	jobsInFlight.WithLabelValues(normalizeMetricLabel(namespace, "unknown"), priority.String()).Dec()
}

func recordEmptySweep(namespace string) {
	pollerSweepEmptyTotal.WithLabelValues(normalizeMetricLabel(namespace, "unknown")).Inc()
}

func setAckQueueDepth(namespace string, depth int) {
	ackDecisionQueueDepth.WithLabelValues(normalizeMetricLabel(namespace, "unknown")).Set(float64(depth))
}

// MetricsCollectors exposes this package's domain counters/gauges so a
// hosting application can register them onto its own
// pkg/observability/metrics.Registry alongside the HTTP/runtime collectors
// that registry already owns, rather than relying on the Prometheus default
// registerer promauto targets implicitly.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		jobsEnqueuedTotal,
		jobsProcessedTotal,
		jobsRetryTotal,
		jobsDLQTotal,
		jobsInFlight,
		pollerSweepEmptyTotal,
		ackDecisionQueueDepth,
	}
}

func normalizeMetricLabel(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
