// Package metrics is the Metrics/diagnostics collaborator, backed by
// prometheus/client_golang the way
// fyrsmithlabs-contextd/internal/vectorstore/metrics.go wires its gauges and
// counters via promauto.
package metrics

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"wardend/internal/role"
	"wardend/internal/softap"
)

var (
	pmsmStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardend",
			Subsystem: "pmsm",
			Name:      "started_total",
			Help:      "Total number of PMSM start successes, by family and role",
		},
		[]string{"family", "role"},
	)

	pmsmStopped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardend",
			Subsystem: "pmsm",
			Name:      "stopped_total",
			Help:      "Total number of PMSM stops, by family, role, and reason",
		},
		[]string{"family", "role", "reason"},
	)

	pmsmStartFailure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardend",
			Subsystem: "pmsm",
			Name:      "start_failures_total",
			Help:      "Total number of PMSM start failures, by family, role, and reason",
		},
		[]string{"family", "role", "reason"},
	)

	// NumSoftApClientBlocked matches the AOSP metric name, emitted at most
	// once per settings epoch, labelled with the reason of the first client
	// blocked in that epoch.
	NumSoftApClientBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardend",
			Subsystem: "softap",
			Name:      "clients_blocked_total",
			Help:      "Total number of SoftAp clients blocked by admission policy, by reason",
		},
		[]string{"reason"},
	)

	deferredStopDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wardend",
			Subsystem: "dsc",
			Name:      "deferred_stop_duration_seconds",
			Help:      "Duration a client stop was held by the Deferred-Stop Controller",
			Buckets:   prometheus.DefBuckets,
		},
	)

	deferredStopOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wardend",
			Subsystem: "dsc",
			Name:      "deferred_stop_outcomes_total",
			Help:      "Deferred-stop outcomes, by whether it was deferred and whether it timed out",
		},
		[]string{"was_deferred", "timed_out"},
	)

	// TrafficRxBytes is exported, like NumSoftApClientBlocked, so tests can
	// assert on it directly via prometheus/client_golang/prometheus/testutil.
	TrafficRxBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wardend",
			Subsystem: "traffic",
			Name:      "rx_bytes_per_sample",
			Help:      "Bytes received on a PMSM-owned interface since the previous sample",
		},
		[]string{"iface"},
	)

	// TrafficTxBytes mirrors TrafficRxBytes for outbound bytes.
	TrafficTxBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wardend",
			Subsystem: "traffic",
			Name:      "tx_bytes_per_sample",
			Help:      "Bytes sent on a PMSM-owned interface since the previous sample",
		},
		[]string{"iface"},
	)
)

// RecordTraffic publishes one sample from internal/traffic's poller. It is a
// free function rather than a Recorder method because the traffic sampler
// has no other dependency on pmsm.Metrics.
func RecordTraffic(iface string, rxDelta, txDelta uint64) {
	TrafficRxBytes.WithLabelValues(iface).Set(float64(rxDelta))
	TrafficTxBytes.WithLabelValues(iface).Set(float64(txDelta))
}

// Recorder implements pmsm.Metrics against the package-level Prometheus
// collectors above; it holds no state of its own.
type Recorder struct{}

// New returns the process-wide metrics recorder.
func New() Recorder { return Recorder{} }

func (Recorder) PMSMStarted(family string, r role.Role) {
	pmsmStarted.WithLabelValues(family, r.String()).Inc()
}

func (Recorder) PMSMStopped(family string, r role.Role, reason string) {
	pmsmStopped.WithLabelValues(family, r.String(), reason).Inc()
}

func (Recorder) PMSMStartFailure(family string, r role.Role, reason string) {
	pmsmStartFailure.WithLabelValues(family, r.String(), reason).Inc()
}

func (Recorder) SoftApClientBlocked(reason softap.BlockReason) {
	NumSoftApClientBlocked.WithLabelValues(reason.String()).Inc()
}

func (Recorder) DeferredStop(wasDeferred, timedOut bool, durationMillis int64) {
	deferredStopDuration.Observe(float64(durationMillis) / 1000.0)
	deferredStopOutcome.WithLabelValues(boolLabel(wasDeferred), boolLabel(timedOut)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// NewWorkSourceID mints a work-source identifier passed to
// nativeif.Layer.SetupSoftAp, following fyrsmithlabs-contextd's use of
// google/uuid for request/session identifiers.
func NewWorkSourceID() string {
	return "wardend-" + uuid.NewString()
}
