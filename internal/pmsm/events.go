// Package pmsm implements the two Per-Mode State Machine variants:
// Client-PMSM and SoftAp-PMSM. Each owns exactly one
// native interface and drives it through request -> up -> serving ->
// teardown, reporting lifecycle events upward to whatever holds it (the
// Warden in production, a fake listener in tests).
package pmsm

import "wardend/internal/role"

// Listener receives the terminal lifecycle events a PMSM reports upward.
// onStarted always precedes any onRoleChanged, which always precedes
// onStopped or onStartFailure. OnStopped fires for every teardown once a
// PMSM has left Idle, including mid-life failures (daemon death, interface
// down); OnStartFailure fires when the initial start never reached Started,
// and also when a Client-PMSM's SWITCH_TO_CONNECT is refused, in which case
// it replaces OnStopped.
type Listener interface {
	OnStarted(id int, r role.Role)
	OnRoleChanged(id int, r role.Role)
	OnStopped(id int)
	OnStartFailure(id int, err error)
}

// MidLifeFailureListener is an optional capability a Listener may implement
// to learn the reason behind a mid-life abort before OnStopped fires,
// mirroring AOSP's separate mSelfRecovery.trigger(...) call alongside
// mModeListener.onStopped() on the same CMD_INTERFACE_DOWN path.
type MidLifeFailureListener interface {
	OnMidLifeFailure(id int, kind ErrKind)
}

// WifiState is the external, broadcastable state a Client-PMSM reports while
// it holds CLIENT_PRIMARY.
type WifiState int

const (
	StateDisabled WifiState = iota
	StateDisabling
	StateEnabled
	StateEnabling
	StateUnknown
)

func (s WifiState) String() string {
	switch s {
	case StateDisabled:
		return "DISABLED"
	case StateDisabling:
		return "DISABLING"
	case StateEnabled:
		return "ENABLED"
	case StateEnabling:
		return "ENABLING"
	default:
		return "UNKNOWN"
	}
}

// WifiStateSink receives external Wi-Fi state broadcasts, fanned out as
// sticky D-Bus signals by internal/dbusapi/service.go.
type WifiStateSink interface {
	OnWifiStateChanged(previous, current WifiState)
}

// ApState is the external, broadcastable state for SoftAp start/stop.
type ApState int

const (
	ApStateDisabled ApState = iota
	ApStateDisabling
	ApStateEnabled
	ApStateEnabling
	ApStateFailed
)

func (s ApState) String() string {
	switch s {
	case ApStateDisabled:
		return "DISABLED"
	case ApStateDisabling:
		return "DISABLING"
	case ApStateEnabled:
		return "ENABLED"
	case ApStateEnabling:
		return "ENABLING"
	case ApStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ApStateSink receives Wi-Fi AP state broadcasts.
type ApStateSink interface {
	OnApStateChanged(previous, current ApState, reason error, ifaceName string, mode role.Role)
}
