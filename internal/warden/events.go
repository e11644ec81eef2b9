// Package warden implements the Mode Warden: the top-level
// coordinator that owns the live set of Per-Mode State Machines and decides
// when to create, destroy, or switch them in response to external toggles.
package warden

import (
	"time"

	"wardend/internal/connection"
	"wardend/internal/pmsm"
	"wardend/internal/role"
	"wardend/internal/softap"
)

// ModeChangeCallback receives PMSM lifecycle notifications in the order the
// Warden observes them: onAdded precedes any onRoleChanged, which precedes
// onRemoved.
type ModeChangeCallback interface {
	OnAdded(id int, r role.Role)
	OnRemoved(id int)
	OnRoleChanged(id int, r role.Role)
}

type wardenMsgKind int

const (
	msgWifiToggled wardenMsgKind = iota
	msgAirplaneToggled
	msgScanAlwaysChanged
	msgLocationModeChanged
	msgSetAP
	msgStopSoftAp
	msgUpdateSoftApConfig
	msgRequestLocalOnly
	msgRemoveLocalOnly
	msgRecoveryDisableWifi
	msgRecoveryRestartWifi
	msgRecoveryRestartWifiContinue
	msgDeferredRecoveryRestartWifi
	msgEmergencyCallbackModeChanged
	msgEmergencyCallStateChanged
	msgRegisterCallback
	msgSetScorer
	msgClientStarted
	msgClientRoleChanged
	msgClientStopped
	msgClientStartFailure
	msgSoftApStarted
	msgSoftApStopped
	msgSoftApStartFailure
	msgWifiStateChanged
	msgApStateChanged
	msgClientMidLifeFailure
	msgSoftApMidLifeFailure
	msgClientAvailabilityChanged
	msgSoftApAvailabilityChanged
	msgQueryPrimary
	msgQueryScanOnly
	msgQueryTetheredAp
	msgQueryLocalAp
)

// wardenMsg is the Warden's single event type; every public method and every
// PMSM callback is translated into one of these before it ever touches
// Warden state, keeping all mutation on the run loop's goroutine.
type wardenMsg struct {
	kind wardenMsgKind

	role   role.Role
	on     bool
	reason string
	cfg    softap.Config

	id  int
	err error

	cb      ModeChangeCallback
	local   func(*pmsm.ClientPMSM)
	reply   chan *pmsm.ClientPMSM
	replyAp chan *pmsm.SoftApPMSM

	scorerHandle *connection.ScorerHandle

	wifiPrev, wifiCur pmsm.WifiState
	apPrev, apCur     pmsm.ApState
	apIface           string
	apMode            role.Role

	deferredAt time.Time
}
