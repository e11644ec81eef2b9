package pmsm

import (
	"wardend/internal/role"
	"wardend/internal/softap"
)

// Metrics is the narrow sink both PMSM variants report lifecycle counters
// through. The concrete implementation (internal/metrics) wraps
// prometheus/client_golang; tests use NoOpMetrics.
type Metrics interface {
	PMSMStarted(family string, r role.Role)
	PMSMStopped(family string, r role.Role, reason string)
	PMSMStartFailure(family string, r role.Role, reason string)
	SoftApClientBlocked(reason softap.BlockReason)
	DeferredStop(wasDeferred, timedOut bool, durationMillis int64)
}

// NoOpMetrics discards everything; the zero value for tests and for running
// without internal/metrics wired up.
var NoOpMetrics Metrics = noOpMetrics{}

type noOpMetrics struct{}

func (noOpMetrics) PMSMStarted(string, role.Role)                    {}
func (noOpMetrics) PMSMStopped(string, role.Role, string)            {}
func (noOpMetrics) PMSMStartFailure(string, role.Role, string)       {}
func (noOpMetrics) SoftApClientBlocked(softap.BlockReason)           {}
func (noOpMetrics) DeferredStop(bool, bool, int64)                   {}
