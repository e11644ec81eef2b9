// Package selfrecovery implements the self-recovery collaborator: an
// external component that watches for mid-life PMSM failures (daemon death,
// unexpected interface teardown) and asks the Mode Warden to restart Wi-Fi
// end to end, mirroring AOSP's SelfRecovery.trigger(REASON_STA_IFACE_DOWN)
// call out of ConcreteClientModeManager.
package selfrecovery

import "github.com/sirupsen/logrus"

// warden is the slice of *warden.Warden this collaborator needs. It is
// resolved via late injection: the Warden constructs a Recovery before it
// exists itself, then binds itself back once built, breaking what would
// otherwise be an import cycle between internal/warden and
// internal/selfrecovery.
type warden interface {
	RecoveryRestartWifi(reason string)
}

// Recovery is the self-recovery collaborator. It is safe to call Trigger
// before BindWarden runs; the call is simply dropped, matching the window
// during Warden construction where no PMSM yet exists to report a failure.
type Recovery struct {
	warden warden
	log    *logrus.Entry
}

// New builds a Recovery not yet bound to a Warden.
func New(log *logrus.Entry) *Recovery {
	return &Recovery{log: log.WithField("component", "selfrecovery")}
}

// BindWarden completes the cyclic wiring between Warden and Recovery.
func (r *Recovery) BindWarden(w warden) { r.warden = w }

// Trigger asks the bound Warden to restart Wi-Fi for the given reason.
func (r *Recovery) Trigger(reason string) {
	if r.warden == nil {
		r.log.WithField("reason", reason).Warn("self-recovery triggered before warden bound, dropped")
		return
	}
	r.log.WithField("reason", reason).Warn("self-recovery triggered")
	r.warden.RecoveryRestartWifi(reason)
}
