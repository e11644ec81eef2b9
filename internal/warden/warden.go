package warden

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"wardend/internal/connection"
	"wardend/internal/dsc"
	"wardend/internal/graveyard"
	"wardend/internal/metrics"
	"wardend/internal/nativeif"
	"wardend/internal/pmsm"
	"wardend/internal/policy"
	"wardend/internal/role"
	"wardend/internal/selfrecovery"
	"wardend/internal/softap"
	"wardend/internal/statelog"
	"wardend/internal/telephony"
)

// MaxRecoveryDelay bounds the self-recovery restart delay, matching AOSP's
// ActiveModeWarden.MAX_RECOVERY_TIMEOUT_DELAY_MS.
const MaxRecoveryDelay = 4 * time.Second

type wardenState int

const (
	stateDisabled wardenState = iota
	stateEnabled
)

func (s wardenState) String() string {
	if s == stateEnabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// Config bundles the knobs Warden needs beyond its collaborators.
type Config struct {
	ExtraDelayOnImsLost         time.Duration
	RecoveryDelay               time.Duration
	StaApConcurrencySupported   bool
	// EngineFactory builds a fresh connection.Engine for a newly created
	// Client-PMSM. Defaults to always returning connection.NoOp, matching
	// DefaultClientModeManager.java's stance when no real engine is wired.
	EngineFactory func() connection.Engine
}

// Warden is the Mode Warden, the top-level coordinator owning every PMSM.
type Warden struct {
	log       *logrus.Entry
	native    nativeif.Layer
	policy    *policy.Store
	telephony telephony.Observer
	metrics   pmsm.Metrics
	graveyard *graveyard.Graveyard
	ring      *statelog.Ring
	broadcast *broadcaster
	recovery  *selfrecovery.Recovery
	cfg       Config

	msgCh    chan wardenMsg
	deferred []wardenMsg
	done     chan struct{}

	nextID  int
	clients map[int]*pmsm.ClientPMSM
	softaps map[int]*pmsm.SoftApPMSM

	pendingLocalOnly map[int]func(*pmsm.ClientPMSM)

	state          wardenState
	isEmergency    bool
	inEmergencyCall bool
	inCallbackMode bool
	isShuttingDown atomic.Bool

	// canRequestMoreClient/canRequestMoreSoftAp track the Native Interface
	// Layer's dynamically reported interface-creation capacity, updated via
	// RegisterClientAvailabilityListener/RegisterSoftApAvailabilityListener.
	// They start at cfg.StaApConcurrencySupported until the native layer's
	// first callback arrives.
	canRequestMoreClient bool
	canRequestMoreSoftAp bool

	scorer    *connection.ScorerHandle
	callbacks []ModeChangeCallback
}

// New constructs a Warden in the Disabled state and starts its run loop.
func New(native nativeif.Layer, store *policy.Store, observer telephony.Observer, m pmsm.Metrics, log *logrus.Entry, cfg Config) *Warden {
	if m == nil {
		m = pmsm.NoOpMetrics
	}
	if cfg.RecoveryDelay <= 0 || cfg.RecoveryDelay > MaxRecoveryDelay {
		cfg.RecoveryDelay = MaxRecoveryDelay
	}
	if cfg.EngineFactory == nil {
		cfg.EngineFactory = func() connection.Engine { return connection.NoOp }
	}
	w := &Warden{
		log:                  log.WithField("component", "warden"),
		native:               native,
		policy:               store,
		telephony:            observer,
		metrics:              m,
		graveyard:            graveyard.New(),
		ring:                 statelog.NewRing(),
		cfg:                  cfg,
		msgCh:                make(chan wardenMsg, 64),
		done:                 make(chan struct{}),
		clients:              make(map[int]*pmsm.ClientPMSM),
		softaps:              make(map[int]*pmsm.SoftApPMSM),
		pendingLocalOnly:     make(map[int]func(*pmsm.ClientPMSM)),
		state:                stateDisabled,
		canRequestMoreClient: cfg.StaApConcurrencySupported,
		canRequestMoreSoftAp: cfg.StaApConcurrencySupported,
	}
	w.broadcast = newBroadcaster(w.log)
	w.recovery = selfrecovery.New(w.log)
	w.recovery.BindWarden(w)
	native.RegisterClientAvailabilityListener(func(available bool) {
		w.enqueue(wardenMsg{kind: msgClientAvailabilityChanged, on: available})
	})
	native.RegisterSoftApAvailabilityListener(func(available bool) {
		w.enqueue(wardenMsg{kind: msgSoftApAvailabilityChanged, on: available})
	})
	go w.run()
	return w
}

// Graveyard exposes the bounded stopped-PMSM history for the diag surface.
func (w *Warden) Graveyard() *graveyard.Graveyard { return w.graveyard }

// StateLog exposes the Warden's own transition ring.
func (w *Warden) StateLog() *statelog.Ring { return w.ring }

// Close stops the run loop. Pending PMSMs are left running; callers should
// issue a shutdown sequence first in production use.
func (w *Warden) Close() { close(w.done) }

func (w *Warden) enqueue(m wardenMsg) {
	select {
	case w.msgCh <- m:
	case <-w.done:
	}
}

func (w *Warden) run() {
	for {
		select {
		case m := <-w.msgCh:
			w.dispatch(m)
		case <-w.done:
			return
		}
	}
}

// ---- public fire-and-forget API ----

func (w *Warden) WifiToggled()        { w.enqueue(wardenMsg{kind: msgWifiToggled}) }
func (w *Warden) AirplaneToggled()    { w.enqueue(wardenMsg{kind: msgAirplaneToggled}) }
func (w *Warden) ScanAlwaysModeChanged() { w.enqueue(wardenMsg{kind: msgScanAlwaysChanged}) }
func (w *Warden) LocationModeChanged()   { w.enqueue(wardenMsg{kind: msgLocationModeChanged}) }

func (w *Warden) StartSoftAp(mode role.Role, cfg softap.Config) {
	w.enqueue(wardenMsg{kind: msgSetAP, role: mode, cfg: cfg})
}
func (w *Warden) StopSoftAp(mode role.Role) {
	w.enqueue(wardenMsg{kind: msgStopSoftAp, role: mode})
}
func (w *Warden) UpdateSoftApConfiguration(mode role.Role, cfg softap.Config) {
	w.enqueue(wardenMsg{kind: msgUpdateSoftApConfig, role: mode, cfg: cfg})
}

// RequestLocalOnlyClientModeManager asks for a CLIENT_LOCAL_ONLY PMSM,
// creating one if concurrency allows or handing back the primary otherwise
// when no second radio is available. cb runs on the
// Warden's own goroutine once the decision is made.
func (w *Warden) RequestLocalOnlyClientModeManager(cb func(*pmsm.ClientPMSM)) {
	w.enqueue(wardenMsg{kind: msgRequestLocalOnly, local: cb})
}

func (w *Warden) RemoveLocalOnlyClientModeManager(id int) {
	w.enqueue(wardenMsg{kind: msgRemoveLocalOnly, id: id})
}

func (w *Warden) RecoveryDisableWifi() { w.enqueue(wardenMsg{kind: msgRecoveryDisableWifi}) }
func (w *Warden) RecoveryRestartWifi(reason string) {
	w.enqueue(wardenMsg{kind: msgRecoveryRestartWifi, reason: reason})
}

func (w *Warden) EmergencyCallbackModeChanged(on bool) {
	w.enqueue(wardenMsg{kind: msgEmergencyCallbackModeChanged, on: on})
}
func (w *Warden) EmergencyCallStateChanged(on bool) {
	w.enqueue(wardenMsg{kind: msgEmergencyCallStateChanged, on: on})
}

func (w *Warden) RegisterModeChangeCallback(cb ModeChangeCallback) {
	w.enqueue(wardenMsg{kind: msgRegisterCallback, cb: cb})
}

func (w *Warden) SetScorer(h connection.ScorerHandle) {
	w.enqueue(wardenMsg{kind: msgSetScorer, scorerHandle: &h})
}

func (w *Warden) AddWifiStateListener(l WifiStateListener) { w.broadcast.AddWifiListener(l) }
func (w *Warden) AddApStateListener(l ApStateListener)     { w.broadcast.AddApListener(l) }

// IsStaApConcurrencySupported reports the static hardware capability; it
// never changes at runtime so no message round-trip is needed.
func (w *Warden) IsStaApConcurrencySupported() bool { return w.cfg.StaApConcurrencySupported }

func (w *Warden) PrimaryClientModeManager() (*pmsm.ClientPMSM, bool) {
	reply := make(chan *pmsm.ClientPMSM, 1)
	w.enqueue(wardenMsg{kind: msgQueryPrimary, reply: reply})
	pm := <-reply
	return pm, pm != nil
}

func (w *Warden) ScanOnlyClientModeManager() (*pmsm.ClientPMSM, bool) {
	reply := make(chan *pmsm.ClientPMSM, 1)
	w.enqueue(wardenMsg{kind: msgQueryScanOnly, reply: reply})
	pm := <-reply
	return pm, pm != nil
}

func (w *Warden) TetheredSoftApManager() (*pmsm.SoftApPMSM, bool) {
	reply := make(chan *pmsm.SoftApPMSM, 1)
	w.enqueue(wardenMsg{kind: msgQueryTetheredAp, replyAp: reply})
	pm := <-reply
	return pm, pm != nil
}

func (w *Warden) LocalOnlySoftApManager() (*pmsm.SoftApPMSM, bool) {
	reply := make(chan *pmsm.SoftApPMSM, 1)
	w.enqueue(wardenMsg{kind: msgQueryLocalAp, replyAp: reply})
	pm := <-reply
	return pm, pm != nil
}

// ActiveInterfaces returns the interface names currently owned by the live
// primary and scan-only clients and the tethered and local-only SoftAps;
// local-only client PMSMs are not included. It serves consumers
// (internal/traffic) that poll
// traffic counters without participating in the Warden's own message loop.
func (w *Warden) ActiveInterfaces() []string {
	var ifaces []string
	if pm, ok := w.PrimaryClientModeManager(); ok {
		if iface := pm.IfaceName(); iface != "" {
			ifaces = append(ifaces, iface)
		}
	}
	if pm, ok := w.ScanOnlyClientModeManager(); ok {
		if iface := pm.IfaceName(); iface != "" {
			ifaces = append(ifaces, iface)
		}
	}
	if pm, ok := w.TetheredSoftApManager(); ok {
		if iface := pm.IfaceName(); iface != "" {
			ifaces = append(ifaces, iface)
		}
	}
	if pm, ok := w.LocalOnlySoftApManager(); ok {
		if iface := pm.IfaceName(); iface != "" {
			ifaces = append(ifaces, iface)
		}
	}
	return ifaces
}

// ---- pmsm.Listener / state-sink adapters (external callback marshaling) ----

type clientListener struct{ w *Warden }

func (l clientListener) OnStarted(id int, r role.Role) {
	l.w.enqueue(wardenMsg{kind: msgClientStarted, id: id, role: r})
}
func (l clientListener) OnRoleChanged(id int, r role.Role) {
	l.w.enqueue(wardenMsg{kind: msgClientRoleChanged, id: id, role: r})
}
func (l clientListener) OnStopped(id int) { l.w.enqueue(wardenMsg{kind: msgClientStopped, id: id}) }
func (l clientListener) OnStartFailure(id int, err error) {
	l.w.enqueue(wardenMsg{kind: msgClientStartFailure, id: id, err: err})
}
func (l clientListener) OnMidLifeFailure(id int, kind pmsm.ErrKind) {
	l.w.enqueue(wardenMsg{kind: msgClientMidLifeFailure, id: id, reason: kind.String()})
}

type softApListener struct{ w *Warden }

func (l softApListener) OnStarted(id int, r role.Role) {
	l.w.enqueue(wardenMsg{kind: msgSoftApStarted, id: id, role: r})
}
func (l softApListener) OnRoleChanged(id int, r role.Role) {
	// SoftAp roles are fixed at creation; never fired.
}
func (l softApListener) OnStopped(id int) { l.w.enqueue(wardenMsg{kind: msgSoftApStopped, id: id}) }
func (l softApListener) OnStartFailure(id int, err error) {
	l.w.enqueue(wardenMsg{kind: msgSoftApStartFailure, id: id, err: err})
}
func (l softApListener) OnMidLifeFailure(id int, kind pmsm.ErrKind) {
	l.w.enqueue(wardenMsg{kind: msgSoftApMidLifeFailure, id: id, reason: kind.String()})
}

type wifiSink struct{ w *Warden }

func (s wifiSink) OnWifiStateChanged(prev, cur pmsm.WifiState) {
	s.w.enqueue(wardenMsg{kind: msgWifiStateChanged, wifiPrev: prev, wifiCur: cur})
}

type apSink struct{ w *Warden }

func (s apSink) OnApStateChanged(prev, cur pmsm.ApState, reason error, ifaceName string, mode role.Role) {
	s.w.enqueue(wardenMsg{kind: msgApStateChanged, apPrev: prev, apCur: cur, err: reason, apIface: ifaceName, apMode: mode})
}

// ---- dispatch ----

func (w *Warden) dispatch(m wardenMsg) {
	if w.isEmergency && isUserModeCommand(m.kind) {
		w.log.WithField("event", m.kind).Debug("dropped during emergency overlay")
		return
	}

	switch m.kind {
	case msgWifiToggled, msgScanAlwaysChanged, msgLocationModeChanged:
		w.reevaluateSta()

	case msgAirplaneToggled:
		w.handleAirplaneToggled()

	case msgSetAP:
		w.handleSetAP(m.role, m.cfg)

	case msgStopSoftAp:
		w.stopSoftApByRole(m.role)

	case msgUpdateSoftApConfig:
		w.updateSoftApConfig(m.role, m.cfg)

	case msgRequestLocalOnly:
		w.handleRequestLocalOnly(m.local)

	case msgRemoveLocalOnly:
		if pm, ok := w.clients[m.id]; ok {
			pm.Stop()
		}

	case msgRecoveryDisableWifi:
		w.shutdownAll()

	case msgRecoveryRestartWifi:
		w.handleRecoveryRestart(m.reason)

	case msgDeferredRecoveryRestartWifi:
		w.scheduleRecoveryContinue(m.reason)

	case msgRecoveryRestartWifiContinue:
		w.reevaluateSta()

	case msgEmergencyCallbackModeChanged:
		w.inCallbackMode = m.on
		w.reconcileEmergency()

	case msgEmergencyCallStateChanged:
		w.inEmergencyCall = m.on
		w.reconcileEmergency()

	case msgRegisterCallback:
		w.callbacks = append(w.callbacks, m.cb)

	case msgSetScorer:
		w.scorer = m.scorerHandle
		w.installScorerOnPrimary()

	case msgClientStarted:
		w.onClientStarted(m.id, m.role)
	case msgClientRoleChanged:
		w.onClientRoleChanged(m.id, m.role)
	case msgClientStopped:
		w.onClientStopped(m.id)
	case msgClientStartFailure:
		w.onClientStartFailure(m.id, m.err)

	case msgSoftApStarted:
		w.onSoftApStarted(m.id, m.role)
	case msgSoftApStopped:
		w.onSoftApStopped(m.id)
	case msgSoftApStartFailure:
		w.onSoftApStartFailure(m.id, m.err)

	case msgWifiStateChanged:
		w.broadcast.emitWifi(m.wifiPrev, m.wifiCur)
	case msgApStateChanged:
		w.broadcast.emitAp(m.apPrev, m.apCur, m.err, m.apIface, m.apMode)

	case msgClientMidLifeFailure:
		w.recovery.Trigger(m.reason)
	case msgSoftApMidLifeFailure:
		w.recovery.Trigger(m.reason)

	case msgClientAvailabilityChanged:
		w.canRequestMoreClient = m.on
	case msgSoftApAvailabilityChanged:
		w.canRequestMoreSoftAp = m.on

	case msgQueryPrimary:
		m.reply <- w.findClient(role.ClientPrimary)
	case msgQueryScanOnly:
		m.reply <- w.findClient(role.ClientScanOnly)
	case msgQueryTetheredAp:
		m.replyAp <- w.findSoftAp(role.SoftApTethered)
	case msgQueryLocalAp:
		m.replyAp <- w.findSoftAp(role.SoftApLocalOnly)
	}
}

func isUserModeCommand(k wardenMsgKind) bool {
	switch k {
	case msgWifiToggled, msgAirplaneToggled, msgScanAlwaysChanged, msgLocationModeChanged,
		msgSetAP, msgStopSoftAp, msgUpdateSoftApConfig, msgRequestLocalOnly, msgRemoveLocalOnly,
		msgRecoveryDisableWifi, msgRecoveryRestartWifi, msgDeferredRecoveryRestartWifi,
		msgRecoveryRestartWifiContinue:
		return true
	default:
		return false
	}
}

// ---- station policy ----

func (w *Warden) reevaluateSta() {
	snap := w.policy.Get()
	should := snap.ShouldEnableSta()
	desired := role.ClientScanOnly
	if snap.WifiToggle {
		desired = role.ClientPrimary
	}

	existing := w.nonLocalClient()

	if !should {
		if existing != nil {
			existing.Stop()
		}
		return
	}

	if existing == nil {
		w.createClient(desired)
		return
	}
	if existing.Role() == desired {
		return
	}
	if desired == role.ClientPrimary {
		existing.SwitchToConnect(desired)
	} else {
		existing.SwitchToScanOnly()
	}
}

func (w *Warden) handleAirplaneToggled() {
	snap := w.policy.Get()
	if snap.AirplaneMode {
		w.shutdownAll()
		return
	}
	if w.isShuttingDown.Load() {
		w.deferred = append(w.deferred, wardenMsg{kind: msgWifiToggled})
		return
	}
	w.reevaluateSta()
}

// ---- softap policy ----

func (w *Warden) handleSetAP(mode role.Role, cfg softap.Config) {
	if len(w.softaps) > 0 && !w.canRequestMoreSoftAp {
		for _, c := range w.clients {
			c.Stop()
		}
	}
	w.createSoftAp(mode, cfg)
}

func (w *Warden) stopSoftApByRole(mode role.Role) {
	if pm := w.findSoftAp(mode); pm != nil {
		pm.Stop()
	}
}

func (w *Warden) updateSoftApConfig(mode role.Role, cfg softap.Config) {
	if pm := w.findSoftAp(mode); pm != nil {
		pm.UpdateConfig(cfg)
	}
}

func (w *Warden) handleRequestLocalOnly(cb func(*pmsm.ClientPMSM)) {
	if cb == nil {
		return
	}
	if !w.canRequestMoreClient && w.nonLocalClient() != nil {
		// No second radio available right now: fall back to the primary.
		cb(w.findClient(role.ClientPrimary))
		return
	}
	pm := w.createClient(role.ClientLocalOnly)
	w.pendingLocalOnly[pm.ID()] = cb
}

// ---- emergency overlay ----

func (w *Warden) reconcileEmergency() {
	next := w.inEmergencyCall || w.inCallbackMode
	if next == w.isEmergency {
		return
	}
	w.isEmergency = next
	if next {
		w.log.Warn("entering emergency overlay")
		for _, a := range w.softaps {
			a.Stop()
		}
		if w.policy.Get().Carrier.DisableWifiInEmergency {
			for _, c := range w.clients {
				c.Stop()
			}
		}
		return
	}
	w.log.Info("leaving emergency overlay, re-deriving state from policy")
	w.reevaluateSta()
}

// ---- recovery ----

func (w *Warden) handleRecoveryRestart(reason string) {
	if w.state == stateEnabled {
		w.log.WithField("reason", reason).Warn("recovery restart requested, collecting bug report")
		w.deferred = append(w.deferred, wardenMsg{kind: msgDeferredRecoveryRestartWifi, reason: reason})
		w.shutdownAll()
		return
	}
	w.scheduleRecoveryContinue(reason)
}

func (w *Warden) scheduleRecoveryContinue(reason string) {
	delay := w.cfg.RecoveryDelay
	w.log.WithFields(logrus.Fields{"reason": reason, "delay": delay}).Info("scheduling recovery restart continuation")
	time.AfterFunc(delay, func() {
		w.enqueue(wardenMsg{kind: msgRecoveryRestartWifiContinue})
	})
}

func (w *Warden) shutdownAll() {
	w.isShuttingDown.Store(true)
	for _, c := range w.clients {
		c.Stop()
	}
	for _, a := range w.softaps {
		a.Stop()
	}
}

// ---- PMSM lifecycle bookkeeping ----

func (w *Warden) createClient(r role.Role) *pmsm.ClientPMSM {
	id := w.nextID
	w.nextID++
	dscCtl := dsc.New(w.telephony, w.cfg.ExtraDelayOnImsLost, w.log)
	pm := pmsm.NewClientPMSM(id, w.native, clientListener{w}, wifiSink{w}, dscCtl, w.metrics, w.log)
	pm.BindEngine(w.cfg.EngineFactory())
	w.clients[id] = pm
	pm.Start(r)
	return pm
}

func (w *Warden) createSoftAp(r role.Role, cfg softap.Config) *pmsm.SoftApPMSM {
	id := w.nextID
	w.nextID++
	pm := pmsm.NewSoftApPMSM(id, w.native, softApListener{w}, apSink{w}, w.metrics, w.log)
	w.softaps[id] = pm
	workSource := metrics.NewWorkSourceID()
	pm.Start(r, cfg, workSource, r == role.SoftApTethered)
	return pm
}

func (w *Warden) onClientStarted(id int, r role.Role) {
	w.ring.Record(w.state.String(), stateEnabled.String(), "CLIENT_STARTED")
	w.state = stateEnabled
	if cb, ok := w.pendingLocalOnly[id]; ok {
		delete(w.pendingLocalOnly, id)
		if pm, exists := w.clients[id]; exists {
			cb(pm)
		}
	}
	for _, cb := range w.callbacks {
		cb.OnAdded(id, r)
	}
	if r == role.ClientPrimary {
		w.installScorerOnPrimary()
	}
}

func (w *Warden) onClientRoleChanged(id int, r role.Role) {
	for _, cb := range w.callbacks {
		cb.OnRoleChanged(id, r)
	}
	if r == role.ClientPrimary {
		w.installScorerOnPrimary()
	}
}

func (w *Warden) onClientStopped(id int) {
	pm, ok := w.clients[id]
	if !ok {
		return
	}
	delete(w.clients, id)
	delete(w.pendingLocalOnly, id)
	w.graveyard.Inter(graveyard.Client, graveyard.Entry{ID: id, Role: pm.Role(), StoppedAt: time.Now(), Reason: "STOP"})
	for _, cb := range w.callbacks {
		cb.OnRemoved(id)
	}
	pm.Close()
	w.reconcileLiveSet()
}

func (w *Warden) onClientStartFailure(id int, err error) {
	pm, ok := w.clients[id]
	delete(w.clients, id)
	if cb, ok := w.pendingLocalOnly[id]; ok {
		delete(w.pendingLocalOnly, id)
		cb(nil)
	}
	w.log.WithError(err).Warn("client pmsm start failure")
	if ok {
		pm.Close()
	}
	w.reconcileLiveSet()
}

func (w *Warden) onSoftApStarted(id int, r role.Role) {
	w.state = stateEnabled
	for _, cb := range w.callbacks {
		cb.OnAdded(id, r)
	}
}

func (w *Warden) onSoftApStopped(id int) {
	pm, ok := w.softaps[id]
	if !ok {
		return
	}
	delete(w.softaps, id)
	w.graveyard.Inter(graveyard.SoftAp, graveyard.Entry{ID: id, Role: pm.Role(), StoppedAt: time.Now(), Reason: "STOP"})
	for _, cb := range w.callbacks {
		cb.OnRemoved(id)
	}
	pm.Close()
	w.reconcileLiveSet()
}

func (w *Warden) onSoftApStartFailure(id int, err error) {
	pm, ok := w.softaps[id]
	delete(w.softaps, id)
	w.log.WithError(err).Warn("softap pmsm start failure")
	if ok {
		pm.Close()
	}
	w.reconcileLiveSet()
}

// reconcileLiveSet enforces invariant I1: MW.state == Enabled iff the live
// set is non-empty.
func (w *Warden) reconcileLiveSet() {
	live := len(w.clients) + len(w.softaps)
	if live == 0 {
		if w.state == stateEnabled {
			w.ring.Record(w.state.String(), stateDisabled.String(), "LIVE_SET_EMPTY")
			w.state = stateDisabled
			w.isShuttingDown.Store(false)
			w.drainDeferred()
		}
		return
	}
	w.state = stateEnabled
}

func (w *Warden) drainDeferred() {
	pending := w.deferred
	w.deferred = nil
	for _, m := range pending {
		select {
		case w.msgCh <- m:
		default:
			go func(mm wardenMsg) { w.enqueue(mm) }(m)
		}
	}
}

func (w *Warden) installScorerOnPrimary() {
	if w.scorer == nil {
		return
	}
	if pm := w.findClient(role.ClientPrimary); pm != nil {
		if err := pm.Engine().SetScorer(*w.scorer); err != nil {
			w.log.WithError(err).Debug("scorer install skipped, no live connection engine")
		}
	}
}

func (w *Warden) findClient(r role.Role) *pmsm.ClientPMSM {
	for _, c := range w.clients {
		if c.Role() == r {
			return c
		}
	}
	return nil
}

// nonLocalClient returns the Primary or ScanOnly Client-PMSM the station
// policy switches in place, ignoring any CLIENT_LOCAL_ONLY instances.
func (w *Warden) nonLocalClient() *pmsm.ClientPMSM {
	if c := w.findClient(role.ClientPrimary); c != nil {
		return c
	}
	return w.findClient(role.ClientScanOnly)
}

func (w *Warden) findSoftAp(r role.Role) *pmsm.SoftApPMSM {
	for _, a := range w.softaps {
		if a.Role() == r {
			return a
		}
	}
	return nil
}
