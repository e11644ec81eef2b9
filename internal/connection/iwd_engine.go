package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// iwd D-Bus surface, shared with internal/nativeif/dbus_iwd.go but kept
// private here since the connection engine and the native interface layer
// are separate collaborators even though both happen to speak
// to iwd on this platform.
const (
	iwdService        = "net.connman.iwd"
	stationIface      = "net.connman.iwd.Station"
	networkIface      = "net.connman.iwd.Network"
	agentIface        = "net.connman.iwd.Agent"
	agentManagerIface = "net.connman.iwd.AgentManager"
	agentPath         = "/wardend/connection/agent"
	credentialTTL     = 30 * time.Second
)

// IWDEngine implements Engine against net.connman.iwd, adapted from the
// teacher's internal/iwd/client.go Connect/Disconnect/Scan path and
// internal/iwd/agent.go credential callback. This is the concrete engine a
// CLIENT_PRIMARY or CLIENT_LOCAL_ONLY PMSM binds to once started; Idle PMSMs
// use NoOp instead.
type IWDEngine struct {
	conn        *dbus.Conn
	stationPath dbus.ObjectPath
	log         *logrus.Entry

	mu      sync.Mutex
	pending map[dbus.ObjectPath]pendingCredential
}

type pendingCredential struct {
	password string
	created  time.Time
}

// NewIWDEngine connects to the system bus, locates the Station object, and
// registers an Agent for PSK/SAE credential requests.
func NewIWDEngine(log *logrus.Entry) (*IWDEngine, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connection: connect system bus: %w", err)
	}
	e := &IWDEngine{conn: conn, log: log, pending: make(map[dbus.ObjectPath]pendingCredential)}
	if err := e.findStation(); err != nil {
		log.WithError(err).Warn("iwd station not found yet")
	}
	if err := e.registerAgent(); err != nil {
		log.WithError(err).Warn("failed to register iwd agent; saved-credential connects only")
	}
	return e, nil
}

func (e *IWDEngine) findStation() error {
	obj := e.conn.Object(iwdService, "/")
	var result map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&result); err != nil {
		return err
	}
	for path, ifaces := range result {
		if _, ok := ifaces[stationIface]; ok {
			e.stationPath = path
			return nil
		}
	}
	return fmt.Errorf("no station found")
}

func (e *IWDEngine) registerAgent() error {
	if err := e.conn.Export(e, dbus.ObjectPath(agentPath), agentIface); err != nil {
		return err
	}
	obj := e.conn.Object(iwdService, "/net/connman/iwd")
	return obj.Call(agentManagerIface+".RegisterAgent", 0, dbus.ObjectPath(agentPath)).Err
}

// SetPassword stashes a password for an upcoming Connect, picked up by
// RequestPassphrase when iwd calls back into the agent.
func (e *IWDEngine) SetPassword(ssidPath dbus.ObjectPath, password string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[ssidPath] = pendingCredential{password: password, created: time.Now()}
}

// RequestPassphrase implements net.connman.iwd.Agent.
func (e *IWDEngine) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cred, ok := e.pending[network]
	if !ok {
		return "", dbus.NewError(agentIface+".Error.Canceled", []interface{}{"no credential available"})
	}
	if time.Since(cred.created) > credentialTTL {
		delete(e.pending, network)
		return "", dbus.NewError(agentIface+".Error.Canceled", []interface{}{"credential expired"})
	}
	delete(e.pending, network)
	return cred.password, nil
}

func (e *IWDEngine) RequestPrivateKeyPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	return "", dbus.NewError(agentIface+".Error.Canceled", []interface{}{"not supported"})
}

func (e *IWDEngine) RequestUserNameAndPassword(network dbus.ObjectPath) (string, string, *dbus.Error) {
	return "", "", dbus.NewError(agentIface+".Error.Canceled", []interface{}{"not supported"})
}

func (e *IWDEngine) Cancel(reason string) *dbus.Error {
	e.mu.Lock()
	e.pending = make(map[dbus.ObjectPath]pendingCredential)
	e.mu.Unlock()
	return nil
}

func (e *IWDEngine) Release() *dbus.Error {
	e.mu.Lock()
	e.pending = make(map[dbus.ObjectPath]pendingCredential)
	e.mu.Unlock()
	return nil
}

// Connect resolves ssid to an iwd Network object path and calls
// Network.Connect. Hidden-network and connection-state bookkeeping is owned
// by the Client-PMSM rather than this engine.
func (e *IWDEngine) Connect(ctx context.Context, ssid string) error {
	path, err := e.findNetworkPath(ssid)
	if err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	obj := e.conn.Object(iwdService, path)
	if err := obj.Call(networkIface+".Connect", 0).Err; err != nil {
		return fmt.Errorf("connection: iwd connect failed: %w", err)
	}
	return nil
}

func (e *IWDEngine) findNetworkPath(ssid string) (dbus.ObjectPath, error) {
	obj := e.conn.Object(iwdService, e.stationPath)
	var result []struct {
		Path dbus.ObjectPath
		RSSI int16
	}
	if err := obj.Call(stationIface+".GetOrderedNetworks", 0).Store(&result); err != nil {
		return "", err
	}
	for _, r := range result {
		netObj := e.conn.Object(iwdService, r.Path)
		var props map[string]dbus.Variant
		if err := netObj.Call("org.freedesktop.DBus.Properties.GetAll", 0, networkIface).Store(&props); err != nil {
			continue
		}
		if v, ok := props["Name"]; ok {
			if name, _ := v.Value().(string); name == ssid {
				return r.Path, nil
			}
		}
	}
	return "", fmt.Errorf("network not found: %s", ssid)
}

func (e *IWDEngine) Save(ctx context.Context, ssid string) error { return nil }

func (e *IWDEngine) Disconnect(ctx context.Context) error {
	obj := e.conn.Object(iwdService, e.stationPath)
	return obj.Call(stationIface+".Disconnect", 0).Err
}

func (e *IWDEngine) Reassociate(ctx context.Context) error {
	return e.Disconnect(ctx)
}

func (e *IWDEngine) Roam(ctx context.Context, bssid string) error {
	return fmt.Errorf("connection: explicit roam target not supported by iwd station API")
}

func (e *IWDEngine) SetScorer(h ScorerHandle) error {
	e.log.WithField("scorer", fmt.Sprintf("%T", h.Scorer)).Debug("scorer installed (iwd has no native scorer hook; tracked for re-installation only)")
	return nil
}

func (e *IWDEngine) StartPasspointProvisioning(ctx context.Context, osuID string) error {
	return fmt.Errorf("connection: passpoint provisioning not implemented")
}

func (e *IWDEngine) StartDPP(ctx context.Context, uri string) error {
	return fmt.Errorf("connection: DPP not implemented")
}

func (e *IWDEngine) EnableTDLS(ctx context.Context, peerMAC string, enable bool) error {
	return fmt.Errorf("connection: TDLS not implemented")
}

func (e *IWDEngine) SendLinkProbe(ctx context.Context) error {
	return fmt.Errorf("connection: link probe not implemented")
}

func (e *IWDEngine) Close() error { return e.conn.Close() }
