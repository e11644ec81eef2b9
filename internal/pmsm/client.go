package pmsm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"wardend/internal/connection"
	"wardend/internal/dsc"
	"wardend/internal/nativeif"
	"wardend/internal/role"
	"wardend/internal/statelog"
)

// clientState is the Client-PMSM's own state, private to this file. Idle and
// Started are the two top-level states; ScanOnly/Connect
// are Started's children. A message unhandled by the child state bubbles to
// the shared Started handling, mirroring the parent-chain NOT_HANDLED
// convention of AOSP's StateMachine base class.
type clientState int

const (
	clientIdle clientState = iota
	clientStartedScanOnly
	clientStartedConnect
)

func (s clientState) String() string {
	switch s {
	case clientIdle:
		return "IDLE"
	case clientStartedScanOnly:
		return "STARTED_SCAN_ONLY"
	case clientStartedConnect:
		return "STARTED_CONNECT"
	default:
		return "UNKNOWN"
	}
}

type clientMsgKind int

const (
	cMsgStart clientMsgKind = iota
	cMsgStop
	cMsgSwitchToConnect
	cMsgSwitchToScanOnly
	cMsgIfaceUp
	cMsgIfaceDown
	cMsgIfaceDestroyed
	cMsgDeferredStopReady
)

type clientMsg struct {
	kind      clientMsgKind
	role      role.Role
	ifaceName string
	dscResult dsc.Result
}

// ClientPMSM is the Client Per-Mode State Machine. It owns one
// client interface, forwards per-connection operations through a bound
// connection.Engine, and reports lifecycle and Wi-Fi state broadcasts
// upward. External callers and nativeif callbacks only ever push a message
// onto msgCh. State fields are only touched from the run loop goroutine;
// engine, roleVal and ifaceNameVal are also read from other goroutines and
// are guarded by engineMu, atomic access and ifaceMu respectively.
type ClientPMSM struct {
	id       int
	native   nativeif.Layer
	engineMu sync.Mutex // guards engine; read from the Warden goroutine via Engine(), written from run()
	engine   connection.Engine
	listener Listener
	wifiSink WifiStateSink
	dscCtl   *dsc.Controller
	metrics  Metrics
	ring     *statelog.Ring
	log      *logrus.Entry

	msgCh chan clientMsg
	done  chan struct{}

	state         clientState
	roleVal       atomic.Int32 // role.Role, read cross-goroutine via Role()
	ifaceMu       sync.RWMutex // guards ifaceNameVal; read cross-goroutine via IfaceName()
	ifaceNameVal  string
	wifiState     WifiState
	stopPending   bool
}

// IfaceName returns the interface name currently owned by this PMSM, or ""
// if Idle. Safe to call from any goroutine, e.g. internal/traffic's sampler.
func (c *ClientPMSM) IfaceName() string {
	c.ifaceMu.RLock()
	defer c.ifaceMu.RUnlock()
	return c.ifaceNameVal
}

func (c *ClientPMSM) setIfaceName(name string) {
	c.ifaceMu.Lock()
	c.ifaceNameVal = name
	c.ifaceMu.Unlock()
}

// NewClientPMSM builds a Client-PMSM in the Idle state. dscCtl may be nil,
// which disables deferred-stop entirely (equivalent to a deferring time of
// 0 for every subscription).
func NewClientPMSM(id int, native nativeif.Layer, listener Listener, wifiSink WifiStateSink, dscCtl *dsc.Controller, metrics Metrics, log *logrus.Entry) *ClientPMSM {
	if metrics == nil {
		metrics = NoOpMetrics
	}
	c := &ClientPMSM{
		id:        id,
		native:    native,
		engine:    connection.NoOp,
		listener:  listener,
		wifiSink:  wifiSink,
		dscCtl:    dscCtl,
		metrics:   metrics,
		ring:      statelog.NewRing(),
		log:       log.WithField("pmsm", "client").WithField("id", id),
		msgCh:     make(chan clientMsg, 16),
		done:      make(chan struct{}),
		state:     clientIdle,
		wifiState: StateDisabled,
	}
	c.roleVal.Store(int32(role.Unknown))
	go c.run()
	return c
}

// StateLog exposes the transition ring. No CLI or D-Bus surface reads it.
func (c *ClientPMSM) StateLog() *statelog.Ring { return c.ring }

// ID returns the PMSM's identity, used as the graveyard/warden lookup key.
func (c *ClientPMSM) ID() int { return c.id }

// Role reports the current role, safe to call from any goroutine (the
// Warden reads it outside of message processing to decide switch-vs-create).
func (c *ClientPMSM) Role() role.Role { return role.Role(c.roleVal.Load()) }

func (c *ClientPMSM) setRole(r role.Role) { c.roleVal.Store(int32(r)) }

func (c *ClientPMSM) getRole() role.Role { return role.Role(c.roleVal.Load()) }

// Engine returns the currently bound connection engine: connection.NoOp
// before BindEngine and after a stop or abort. The Warden uses this to re-install a cached scorer on whichever
// PMSM currently holds CLIENT_PRIMARY.
func (c *ClientPMSM) Engine() connection.Engine {
	c.engineMu.Lock()
	defer c.engineMu.Unlock()
	return c.engine
}

// BindEngine attaches the connection engine to forward per-connection
// operations to once the PMSM reaches Started; called by the Warden right
// after construction, before Start.
func (c *ClientPMSM) BindEngine(e connection.Engine) {
	if e == nil {
		e = connection.NoOp
	}
	c.engineMu.Lock()
	c.engine = e
	c.engineMu.Unlock()
}

func (c *ClientPMSM) setEngine(e connection.Engine) {
	c.engineMu.Lock()
	c.engine = e
	c.engineMu.Unlock()
}

// Start requests the PMSM come up in the given role. Fire-and-forget: the
// caller learns the outcome through Listener.OnStarted/OnStartFailure.
func (c *ClientPMSM) Start(r role.Role) {
	c.send(clientMsg{kind: cMsgStart, role: r})
}

// Stop requests the PMSM tear down, subject to deferred-stop gating when
// leaving CLIENT_PRIMARY with an active IMS-over-Wi-Fi call.
func (c *ClientPMSM) Stop() {
	c.send(clientMsg{kind: cMsgStop})
}

// SwitchToConnect requests promotion from CLIENT_SCAN_ONLY to a connectivity
// role without tearing down the interface.
func (c *ClientPMSM) SwitchToConnect(r role.Role) {
	c.send(clientMsg{kind: cMsgSwitchToConnect, role: r})
}

// SwitchToScanOnly requests demotion out of a connectivity role, keeping the
// interface alive in scan-only mode.
func (c *ClientPMSM) SwitchToScanOnly() {
	c.send(clientMsg{kind: cMsgSwitchToScanOnly})
}

func (c *ClientPMSM) send(m clientMsg) {
	select {
	case c.msgCh <- m:
	case <-c.done:
	}
}

// OnUp implements nativeif.InterfaceCallback.
func (c *ClientPMSM) OnUp(ifaceName string) { c.send(clientMsg{kind: cMsgIfaceUp, ifaceName: ifaceName}) }

// OnDown implements nativeif.InterfaceCallback.
func (c *ClientPMSM) OnDown(ifaceName string) {
	c.send(clientMsg{kind: cMsgIfaceDown, ifaceName: ifaceName})
}

// OnDestroyed implements nativeif.InterfaceCallback.
func (c *ClientPMSM) OnDestroyed(ifaceName string) {
	c.send(clientMsg{kind: cMsgIfaceDestroyed, ifaceName: ifaceName})
}

// Close stops the run loop without going through the Stop teardown sequence;
// used by the Warden once a PMSM has already reported OnStopped.
func (c *ClientPMSM) Close() {
	close(c.done)
}

func (c *ClientPMSM) run() {
	for {
		select {
		case m := <-c.msgCh:
			c.dispatch(m)
		case <-c.done:
			return
		}
	}
}

func (c *ClientPMSM) dispatch(m clientMsg) {
	switch c.state {
	case clientIdle:
		c.handleIdle(m)
	case clientStartedScanOnly, clientStartedConnect:
		if !c.handleStartedChild(m) {
			c.handleStarted(m)
		}
	}
}

func (c *ClientPMSM) handleIdle(m clientMsg) {
	if m.kind != cMsgStart {
		c.log.WithField("event", m.kind).Debug("ignored message while idle")
		return
	}

	c.setRole(m.role)
	c.broadcastIfPrimary(StateEnabling)

	ifaceName, err := c.native.SetupClientScanMode(c)
	if err != nil {
		werr := NewError(NativeSetupFailed, err)
		c.metrics.PMSMStartFailure("client", m.role, werr.Kind.String())
		c.broadcastIfPrimary(StateDisabled)
		c.setRole(role.Unknown)
		c.listener.OnStartFailure(c.id, werr)
		return
	}

	c.setIfaceName(ifaceName)
	next := clientStartedScanOnly
	if m.role.IsConnectivity() {
		if c.native.SwitchClientToConnectivityMode(ifaceName) {
			next = clientStartedConnect
		} else {
			c.log.Warn("connectivity mode requested but native layer refused; staying scan-only")
		}
	}
	c.transition(next, "START")
	c.metrics.PMSMStarted("client", c.getRole())
	c.listener.OnStarted(c.id, c.getRole())
	c.broadcastIfPrimary(StateEnabled)
}

// handleStartedChild handles messages specific to whichever Started child
// state is active. It returns false to signal NOT_HANDLED, bubbling to
// handleStarted.
func (c *ClientPMSM) handleStartedChild(m clientMsg) bool {
	switch c.state {
	case clientStartedScanOnly:
		if m.kind == cMsgSwitchToConnect {
			if c.native.SwitchClientToConnectivityMode(c.IfaceName()) {
				c.setRole(m.role)
				c.transition(clientStartedConnect, "SWITCH_TO_CONNECT")
				c.listener.OnRoleChanged(c.id, c.getRole())
			} else {
				c.log.Warn("SWITCH_TO_CONNECT refused by native layer")
				werr := NewError(StartFailureGeneric, nil)
				c.metrics.PMSMStartFailure("client", m.role, werr.Kind.String())
				c.setRole(m.role)
				c.broadcastIfPrimary(StateUnknown)
				c.broadcastIfPrimary(StateDisabled)
				c.setRole(role.Unknown)
				c.native.TeardownInterface(c.IfaceName())
				c.setIfaceName("")
				c.transition(clientIdle, werr.Kind.String())
				c.listener.OnStartFailure(c.id, werr)
			}
			return true
		}
	case clientStartedConnect:
		if m.kind == cMsgSwitchToScanOnly {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Engine().Disconnect(ctx)
			cancel()
			if c.native.SwitchClientToScanMode(c.IfaceName()) {
				c.setRole(role.ClientScanOnly)
				c.transition(clientStartedScanOnly, "SWITCH_TO_SCAN_ONLY")
				c.listener.OnRoleChanged(c.id, c.getRole())
				c.broadcastIfPrimary(StateDisabled)
			} else {
				c.log.Warn("SWITCH_TO_SCAN_ONLY refused by native layer")
			}
			return true
		}
	}
	return false
}

// handleStarted implements the messages common to both Started children,
// equivalent to AOSP's StateMachine parent-state fallback.
func (c *ClientPMSM) handleStarted(m clientMsg) {
	switch m.kind {
	case cMsgIfaceDown:
		if m.ifaceName != c.IfaceName() {
			return
		}
		c.log.Error("client interface went down unexpectedly")
		c.abort(InterfaceDownUnexpected)

	case cMsgIfaceDestroyed:
		if m.ifaceName != c.IfaceName() {
			return
		}
		c.log.Error("client interface destroyed unexpectedly")
		c.abort(InterfaceDestroyedUnexpected)

	case cMsgIfaceUp:
		// Already up; a duplicate netlink notification, ignore.

	case cMsgStop:
		c.beginStop()

	case cMsgDeferredStopReady:
		c.finishStop(m.dscResult)

	case cMsgStart:
		c.log.Debug("ignored redundant START while already started")

	default:
		c.log.WithField("event", m.kind).Debug("unhandled message in Started state")
	}
}

// abort tears down immediately without deferred-stop gating; the interface
// is already gone or in an unknown state, so there is nothing left to defer.
func (c *ClientPMSM) abort(kind ErrKind) {
	prevRole := c.getRole()
	c.broadcastIfPrimary(StateDisabled)
	c.setRole(role.Unknown)
	c.setEngine(connection.NoOp)
	c.setIfaceName("")
	c.transition(clientIdle, kind.String())
	c.metrics.PMSMStopped("client", prevRole, kind.String())
	if ml, ok := c.listener.(MidLifeFailureListener); ok {
		ml.OnMidLifeFailure(c.id, kind)
	}
	c.listener.OnStopped(c.id)
}

func (c *ClientPMSM) beginStop() {
	if c.stopPending {
		return
	}
	if c.state != clientStartedConnect || c.dscCtl == nil {
		c.finishStop(dsc.Result{})
		return
	}
	c.stopPending = true
	resultCh := c.dscCtl.Defer()
	go func() {
		res := <-resultCh
		c.send(clientMsg{kind: cMsgDeferredStopReady, dscResult: res})
	}()
}

func (c *ClientPMSM) finishStop(res dsc.Result) {
	c.stopPending = false
	c.metrics.DeferredStop(res.WasDeferred, res.TimedOut, res.Duration.Milliseconds())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = c.Engine().Disconnect(ctx)
	cancel()
	c.native.TeardownInterface(c.IfaceName())

	prevRole := c.getRole()
	c.broadcastIfPrimary(StateDisabled)
	c.setEngine(connection.NoOp)
	c.setRole(role.Unknown)
	c.setIfaceName("")
	c.transition(clientIdle, "STOP")
	c.metrics.PMSMStopped("client", prevRole, "requested")
	c.listener.OnStopped(c.id)
}

func (c *ClientPMSM) broadcastIfPrimary(s WifiState) {
	if c.getRole() != role.ClientPrimary || c.wifiSink == nil {
		return
	}
	prev := c.wifiState
	c.wifiState = s
	if prev != s {
		c.wifiSink.OnWifiStateChanged(prev, s)
	}
}

func (c *ClientPMSM) transition(next clientState, event string) {
	c.ring.Record(c.state.String(), next.String(), event)
	c.state = next
}
