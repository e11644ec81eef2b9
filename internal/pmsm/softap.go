package pmsm

import (
	"errors"
	"fmt"
	"hash/crc32"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"wardend/internal/nativeif"
	"wardend/internal/role"
	"wardend/internal/softap"
	"wardend/internal/statelog"
)

// DeriveOWETransitionSSID computes the hidden OWE-only companion SSID for an
// OWE-transition network. A CRC32 checksum of the primary SSID is used
// rather than a language-specific string hash: deterministic, stable across
// processes, and short enough to fit the 32-byte SSID limit alongside the
// prefix.
func DeriveOWETransitionSSID(ssid string) string {
	sum := crc32.ChecksumIEEE([]byte(ssid))
	return fmt.Sprintf("OWE_%08X", sum)
}

type softApState int

const (
	softApIdle softApState = iota
	softApStarted
)

func (s softApState) String() string {
	if s == softApStarted {
		return "STARTED"
	}
	return "IDLE"
}

type softApMsgKind int

const (
	sMsgStart softApMsgKind = iota
	sMsgStop
	sMsgUpdateConfig
	sMsgIfaceUp
	sMsgIfaceDown
	sMsgIfaceDestroyed
	sMsgHostapdFailure
	sMsgInfoChanged
	sMsgClientsChanged
	sMsgClientAssociating
	sMsgIdleTimeout
)

type softApMsg struct {
	kind       softApMsgKind
	cfg        softap.Config
	role       role.Role
	workSource string
	isTethered bool
	ifaceName  string
	info       softap.Info
	clients    []string
	mac        string
}

// SoftApPMSM is the SoftAp Per-Mode State Machine. It owns one
// AP interface, runs the client-admission policy, and reports lifecycle and
// AP state broadcasts upward.
type SoftApPMSM struct {
	id       int
	native   nativeif.Layer
	listener Listener
	apSink   ApStateSink
	metrics  Metrics
	ring     *statelog.Ring
	log      *logrus.Entry

	msgCh chan softApMsg
	done  chan struct{}

	state        softApState
	roleVal      atomic.Int32 // role.Role, read cross-goroutine via Role()
	ifaceMu      sync.RWMutex // guards ifaceNameVal; read cross-goroutine via IfaceName()
	ifaceNameVal string
	workSource   string
	isTethered   bool
	cfg          softap.Config
	runtime      *softap.Runtime
	apState      ApState
	idleTimer    *time.Timer
}

// NewSoftApPMSM builds a SoftAp-PMSM in the Idle state.
func NewSoftApPMSM(id int, native nativeif.Layer, listener Listener, apSink ApStateSink, metrics Metrics, log *logrus.Entry) *SoftApPMSM {
	if metrics == nil {
		metrics = NoOpMetrics
	}
	s := &SoftApPMSM{
		id:       id,
		native:   native,
		listener: listener,
		apSink:   apSink,
		metrics:  metrics,
		ring:     statelog.NewRing(),
		log:      log.WithField("pmsm", "softap").WithField("id", id),
		msgCh:    make(chan softApMsg, 16),
		done:     make(chan struct{}),
		state:    softApIdle,
		apState:  ApStateDisabled,
	}
	go s.run()
	return s
}

func (s *SoftApPMSM) StateLog() *statelog.Ring { return s.ring }
func (s *SoftApPMSM) ID() int                  { return s.id }
func (s *SoftApPMSM) Role() role.Role          { return role.Role(s.roleVal.Load()) }

func (s *SoftApPMSM) setRole(r role.Role) { s.roleVal.Store(int32(r)) }
func (s *SoftApPMSM) getRole() role.Role  { return role.Role(s.roleVal.Load()) }

// IfaceName returns the interface name currently owned by this PMSM, or ""
// if Idle. Safe to call from any goroutine, e.g. internal/traffic's sampler.
func (s *SoftApPMSM) IfaceName() string {
	s.ifaceMu.RLock()
	defer s.ifaceMu.RUnlock()
	return s.ifaceNameVal
}

func (s *SoftApPMSM) setIfaceName(name string) {
	s.ifaceMu.Lock()
	s.ifaceNameVal = name
	s.ifaceMu.Unlock()
}

// Start requests the AP come up with the given config. Fire-and-forget: the
// caller learns the outcome through Listener.OnStarted/OnStartFailure.
func (s *SoftApPMSM) Start(r role.Role, cfg softap.Config, workSource string, isTethered bool) {
	s.send(softApMsg{kind: sMsgStart, role: r, cfg: cfg, workSource: workSource, isTethered: isTethered})
}

// Stop requests the AP tear down. There is no deferred-stop gating for
// SoftAp; only Client-PMSM stop can be deferred for an active IMS call.
func (s *SoftApPMSM) Stop() { s.send(softApMsg{kind: sMsgStop}) }

// UpdateConfig applies a new configuration, restarting the AP only if
// softap.NeedsRestart says the change can't be applied live.
func (s *SoftApPMSM) UpdateConfig(cfg softap.Config) { s.send(softApMsg{kind: sMsgUpdateConfig, cfg: cfg}) }

func (s *SoftApPMSM) send(m softApMsg) {
	select {
	case s.msgCh <- m:
	case <-s.done:
	}
}

func (s *SoftApPMSM) OnUp(ifaceName string)        { s.send(softApMsg{kind: sMsgIfaceUp, ifaceName: ifaceName}) }
func (s *SoftApPMSM) OnDown(ifaceName string)       { s.send(softApMsg{kind: sMsgIfaceDown, ifaceName: ifaceName}) }
func (s *SoftApPMSM) OnDestroyed(ifaceName string)  { s.send(softApMsg{kind: sMsgIfaceDestroyed, ifaceName: ifaceName}) }
func (s *SoftApPMSM) OnFailure()                    { s.send(softApMsg{kind: sMsgHostapdFailure}) }
func (s *SoftApPMSM) OnInfoChanged(info softap.Info) { s.send(softApMsg{kind: sMsgInfoChanged, info: info}) }
func (s *SoftApPMSM) OnConnectedClientsChanged(clients []string) {
	s.send(softApMsg{kind: sMsgClientsChanged, clients: clients})
}
func (s *SoftApPMSM) OnClientAssociating(mac string) {
	s.send(softApMsg{kind: sMsgClientAssociating, mac: mac})
}

// Close stops the run loop without going through the Stop teardown sequence.
func (s *SoftApPMSM) Close() { close(s.done) }

func (s *SoftApPMSM) run() {
	for {
		select {
		case m := <-s.msgCh:
			s.dispatch(m)
		case <-s.done:
			return
		}
	}
}

func (s *SoftApPMSM) dispatch(m softApMsg) {
	if m.kind == sMsgIdleTimeout {
		if s.state == softApStarted && len(s.runtime.Connected) == 0 {
			s.log.Info("auto-shutdown: no clients before timeout")
			s.beginStop("AUTO_SHUTDOWN")
		}
		return
	}
	switch s.state {
	case softApIdle:
		s.handleIdle(m)
	case softApStarted:
		s.handleStarted(m)
	}
}

func (s *SoftApPMSM) handleIdle(m softApMsg) {
	if m.kind != sMsgStart {
		s.log.WithField("event", m.kind).Debug("ignored message while idle")
		return
	}
	s.startSequence(m.role, m.cfg, m.workSource, m.isTethered)
}

// startSequence runs the ordered SoftAp start steps: validate config, check
// capability support, set up the interface, apply country code/MAC, and
// bring hostapd up.
func (s *SoftApPMSM) startSequence(r role.Role, cfg softap.Config, workSource string, isTethered bool) {
	if err := cfg.Validate(); err != nil {
		kind := ConfigInvalid
		if errors.Is(err, softap.ErrNoChannel) {
			kind = NoChannel
		}
		s.failStart(r, cfg, kind, err)
		return
	}

	caps := s.native.Capabilities()
	if needsSAE(cfg.Security) && !caps.Has(softap.CapWPA3SAE) {
		s.failStart(r, cfg, UnsupportedConfiguration, softap.ErrUnsupportedConfig)
		return
	}

	s.broadcastAp(ApStateEnabling, nil, "", r)

	ifaceName, err := s.native.SetupSoftAp(s, workSource, isBridgedRole(r))
	if err != nil {
		s.failStart(r, cfg, NativeSetupFailed, err)
		return
	}

	if cfg.BSSID != "" && caps.Has(softap.CapMACRandomization) {
		if !s.native.SetApMacAddress(ifaceName, cfg.BSSID) {
			s.log.Warn("SetApMacAddress rejected by native layer, continuing with driver-assigned BSSID")
		}
	}

	if cfg.Band.RequiresCountryCode() {
		if !s.native.SetCountryCode(ifaceName, cfg.CountryCode) {
			s.native.TeardownInterface(ifaceName)
			s.failStart(r, cfg, NoChannel, softap.ErrNoChannel)
			return
		}
	}

	effectiveMax := cfg.EffectiveMaxClients(defaultCapabilityMaxClients)
	s.log.WithField("max_clients", effectiveMax).Debug("effective client cap resolved")

	if !s.native.StartSoftAp(ifaceName, cfg, isTethered, s) {
		s.native.TeardownInterface(ifaceName)
		s.failStart(r, cfg, StartFailureGeneric, nil)
		return
	}

	s.setIfaceName(ifaceName)
	s.setRole(r)
	s.workSource = workSource
	s.isTethered = isTethered
	s.cfg = cfg
	s.runtime = softap.NewRuntime()
	s.runtime.StartedAt = timeNow()
	s.transition(softApStarted, "START")
	s.metrics.PMSMStarted("softap", r)
	s.listener.OnStarted(s.id, r)
	s.broadcastAp(ApStateEnabled, nil, ifaceName, r)
	s.armIdleTimer()
}

func (s *SoftApPMSM) failStart(r role.Role, cfg softap.Config, kind ErrKind, cause error) {
	werr := NewError(kind, cause)
	s.metrics.PMSMStartFailure("softap", r, kind.String())
	s.broadcastAp(ApStateFailed, werr, "", r)
	s.listener.OnStartFailure(s.id, werr)
}

func (s *SoftApPMSM) handleStarted(m softApMsg) {
	switch m.kind {
	case sMsgStop:
		s.beginStop("STOP")

	case sMsgIfaceDown:
		if m.ifaceName != s.IfaceName() {
			return
		}
		s.abort(InterfaceDownUnexpected)

	case sMsgIfaceDestroyed:
		if m.ifaceName != s.IfaceName() {
			return
		}
		s.abort(InterfaceDestroyedUnexpected)

	case sMsgHostapdFailure:
		s.abort(DaemonDied)

	case sMsgInfoChanged:
		s.runtime.Info = m.info

	case sMsgClientsChanged:
		s.applyClientsChanged(m.clients)

	case sMsgClientAssociating:
		s.applyAdmissionPolicy(m.mac)

	case sMsgUpdateConfig:
		s.applyConfigUpdate(m.cfg)

	case sMsgStart:
		s.log.Debug("ignored redundant START while already started")

	default:
		s.log.WithField("event", m.kind).Debug("unhandled message in Started state")
	}
}

func (s *SoftApPMSM) applyConfigUpdate(newCfg softap.Config) {
	if err := newCfg.Validate(); err != nil {
		s.log.WithError(err).Warn("rejected invalid config update")
		return
	}
	if softap.NeedsRestart(s.cfg, newCfg) {
		s.log.Info("config update requires restart")
		r, workSource, isTethered := s.getRole(), s.workSource, s.isTethered
		s.beginStopThen("CONFIG_UPDATE", func() {
			s.startSequence(r, newCfg, workSource, isTethered)
		})
		return
	}
	s.cfg = newCfg
	s.runtime.ResetEpoch()
	s.log.Info("config update applied live")
}

func (s *SoftApPMSM) applyClientsChanged(clients []string) {
	connected := make(map[string]struct{}, len(clients))
	for _, mac := range clients {
		connected[mac] = struct{}{}
	}
	s.runtime.Connected = connected

	for mac, reason := range s.runtime.PendingDisconnect {
		if _, stillConnected := connected[mac]; stillConnected {
			s.native.ForceClientDisconnect(s.IfaceName(), mac, reason.String())
		} else {
			delete(s.runtime.PendingDisconnect, mac)
		}
	}

	if len(connected) == 0 {
		s.armIdleTimer()
	} else if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
}

func (s *SoftApPMSM) applyAdmissionPolicy(mac string) {
	if _, blocked := s.cfg.BlockedClients[mac]; blocked {
		s.blockClient(mac, softap.BlockedByUser)
		return
	}
	if s.cfg.ClientControlByUser {
		if _, allowed := s.cfg.AllowedClients[mac]; !allowed {
			s.blockClient(mac, softap.BlockedByUser)
			return
		}
	}
	max := s.cfg.EffectiveMaxClients(defaultCapabilityMaxClients)
	if max > 0 && len(s.runtime.Connected) >= max {
		s.blockClient(mac, softap.NoMoreStations)
		return
	}
}

func (s *SoftApPMSM) blockClient(mac string, reason softap.BlockReason) {
	s.runtime.PendingDisconnect[mac] = reason
	s.native.ForceClientDisconnect(s.IfaceName(), mac, reason.String())
	if !s.runtime.BlockedMetricEmitted() {
		s.metrics.SoftApClientBlocked(reason)
		s.runtime.MarkBlockedMetricEmitted()
	}
}

func (s *SoftApPMSM) armIdleTimer() {
	if !s.cfg.AutoShutdownEnabled {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = softap.DefaultShutdownTimeout
	}
	s.idleTimer = time.AfterFunc(timeout, func() {
		s.send(softApMsg{kind: sMsgIdleTimeout})
	})
}

func (s *SoftApPMSM) abort(kind ErrKind) {
	werr := NewError(kind, nil)
	s.log.WithError(werr).Error("softap aborted")
	prevRole := s.getRole()
	s.teardown("ABORT")
	s.metrics.PMSMStopped("softap", prevRole, kind.String())
	if ml, ok := s.listener.(MidLifeFailureListener); ok {
		ml.OnMidLifeFailure(s.id, kind)
	}
	s.listener.OnStopped(s.id)
}

func (s *SoftApPMSM) beginStop(event string) {
	s.beginStopThen(event, nil)
}

// beginStopThen tears down and, once complete, optionally runs a follow-up
// (used by config updates that require a stop/start cycle).
func (s *SoftApPMSM) beginStopThen(event string, then func()) {
	prevRole := s.getRole()
	s.teardown(event)
	s.metrics.PMSMStopped("softap", prevRole, event)
	s.listener.OnStopped(s.id)
	if then != nil {
		then()
	}
}

func (s *SoftApPMSM) teardown(event string) {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if iface := s.IfaceName(); iface != "" {
		s.native.TeardownInterface(iface)
	}
	s.broadcastAp(ApStateDisabling, nil, s.IfaceName(), s.getRole())
	s.transition(softApIdle, event)
	s.broadcastAp(ApStateDisabled, nil, "", role.Unknown)
	s.setIfaceName("")
	s.setRole(role.Unknown)
}

func (s *SoftApPMSM) broadcastAp(next ApState, reason error, ifaceName string, mode role.Role) {
	if s.apSink == nil {
		return
	}
	prev := s.apState
	s.apState = next
	if prev != next {
		s.apSink.OnApStateChanged(prev, next, reason, ifaceName, mode)
	}
}

func (s *SoftApPMSM) transition(next softApState, event string) {
	s.ring.Record(s.state.String(), next.String(), event)
	s.state = next
}

func needsSAE(sec softap.Security) bool {
	return sec == softap.SecurityWPA3SAE || sec == softap.SecurityWPA3SAETransition
}

func isBridgedRole(r role.Role) bool {
	return r == role.SoftApTethered
}

// defaultCapabilityMaxClients is the capability limit passed to
// EffectiveMaxClients. softap.Capability carries no client limit, so this
// value applies to every SoftAp.
const defaultCapabilityMaxClients = 8

// timeNow is a seam so tests can freeze Runtime.StartedAt; production always
// uses the wall clock.
var timeNow = func() time.Time { return time.Now() }
