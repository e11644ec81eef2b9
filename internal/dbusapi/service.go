// Package dbusapi is the D-Bus control surface fronting the Warden: the
// same export/introspect/Emit idiom via github.com/godbus/dbus/v5 used to
// drive warden.Warden instead of talking to iwd directly.
package dbusapi

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/sirupsen/logrus"

	"wardend/internal/pmsm"
	"wardend/internal/role"
	"wardend/internal/warden"
)

const (
	// ServiceName is the well-known D-Bus name wardend registers.
	ServiceName = "org.wardend.Warden"
	// ObjectPath is the single object wardend exports.
	ObjectPath = "/org/wardend/Warden"
	// Interface is the D-Bus interface name for every exported method, signal and property.
	Interface = "org.wardend.Warden"
)

// Service is the D-Bus-exported object. It keeps a copy of the last Wi-Fi
// and AP state broadcasts it received as the Warden's listener, and property
// Gets read that copy (StaApConcurrencySupported is read from the Warden
// directly). Every method call translates to one Warden public-API call.
type Service struct {
	conn     *dbus.Conn
	warden   *warden.Warden
	log      *logrus.Entry
	defaults SoftApDefaults

	stateMu sync.RWMutex
	wifi    pmsm.WifiState
	ap      pmsm.ApState
	apIface string
	apMode  role.Role
}

// NewService connects to busType ("session" or "system"), exports Service at
// ObjectPath, and registers it as the Warden's sticky-broadcast listener so
// every OnWifiStateChanged/OnApStateChanged fans out as a D-Bus signal.
func NewService(busType string, w *warden.Warden, log *logrus.Entry) (*Service, error) {
	var conn *dbus.Conn
	var err error
	if busType == "system" {
		conn, err = dbus.SystemBus()
	} else {
		conn, err = dbus.SessionBus()
	}
	if err != nil {
		return nil, fmt.Errorf("connect to D-Bus: %w", err)
	}

	s := &Service{conn: conn, warden: w, log: log}

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request name %s: %w", ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name %s already taken", ServiceName)
	}

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export methods: %w", err)
	}
	if err := conn.Export(s, ObjectPath, "org.freedesktop.DBus.Properties"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export properties: %w", err)
	}

	node := &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:       Interface,
				Methods:    s.methods(),
				Properties: s.properties(),
				Signals:    s.signals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	w.AddWifiStateListener(s)
	w.AddApStateListener(s)

	log.WithFields(logrus.Fields{"bus": busType, "service": ServiceName}).Info("dbus control surface registered")
	return s, nil
}

// Close releases the D-Bus connection.
func (s *Service) Close() { s.conn.Close() }

// OnWifiStateChanged implements warden.WifiStateListener.
func (s *Service) OnWifiStateChanged(previous, current pmsm.WifiState) {
	s.stateMu.Lock()
	s.wifi = current
	s.stateMu.Unlock()

	s.emitSignal("WifiStateChanged", previous.String(), current.String())
	s.emitPropertiesChanged(map[string]dbus.Variant{"WifiState": dbus.MakeVariant(current.String())})
}

// OnApStateChanged implements warden.ApStateListener.
func (s *Service) OnApStateChanged(previous, current pmsm.ApState, reason error, ifaceName string, mode role.Role) {
	s.stateMu.Lock()
	s.ap = current
	s.apIface = ifaceName
	s.apMode = mode
	s.stateMu.Unlock()

	reasonStr := ""
	if reason != nil {
		reasonStr = reason.Error()
	}
	s.emitSignal("ApStateChanged", previous.String(), current.String(), ifaceName, mode.String(), reasonStr)
	s.emitPropertiesChanged(map[string]dbus.Variant{
		"ApState":     dbus.MakeVariant(current.String()),
		"ApInterface": dbus.MakeVariant(ifaceName),
	})
}

func (s *Service) emitSignal(name string, values ...interface{}) {
	if err := s.conn.Emit(ObjectPath, Interface+"."+name, values...); err != nil {
		s.log.WithError(err).WithField("signal", name).Warn("failed to emit dbus signal")
	}
}

func (s *Service) emitPropertiesChanged(changed map[string]dbus.Variant) {
	err := s.conn.Emit(ObjectPath, "org.freedesktop.DBus.Properties.PropertiesChanged", Interface, changed, []string{})
	if err != nil {
		s.log.WithError(err).Warn("failed to emit PropertiesChanged")
	}
}

func (s *Service) methods() []introspect.Method {
	return []introspect.Method{
		{Name: "WifiToggled"},
		{Name: "AirplaneToggled"},
		{Name: "ScanAlwaysModeChanged"},
		{Name: "LocationModeChanged"},
		{Name: "StartSoftAp", Args: []introspect.Arg{
			{Name: "mode", Type: "s", Direction: "in"},
			{Name: "ssid", Type: "s", Direction: "in"},
		}},
		{Name: "StopSoftAp", Args: []introspect.Arg{{Name: "mode", Type: "s", Direction: "in"}}},
		{Name: "RecoveryDisableWifi"},
		{Name: "RecoveryRestartWifi", Args: []introspect.Arg{{Name: "reason", Type: "s", Direction: "in"}}},
		{Name: "EmergencyCallbackModeChanged", Args: []introspect.Arg{{Name: "on", Type: "b", Direction: "in"}}},
		{Name: "EmergencyCallStateChanged", Args: []introspect.Arg{{Name: "on", Type: "b", Direction: "in"}}},
		{Name: "DumpGraveyard", Args: []introspect.Arg{{Name: "dump", Type: "s", Direction: "out"}}},
	}
}

func (s *Service) properties() []introspect.Property {
	return []introspect.Property{
		{Name: "WifiState", Type: "s", Access: "read"},
		{Name: "ApState", Type: "s", Access: "read"},
		{Name: "ApInterface", Type: "s", Access: "read"},
		{Name: "StaApConcurrencySupported", Type: "b", Access: "read"},
	}
}

func (s *Service) signals() []introspect.Signal {
	return []introspect.Signal{
		{Name: "WifiStateChanged", Args: []introspect.Arg{
			{Name: "previous", Type: "s"}, {Name: "current", Type: "s"},
		}},
		{Name: "ApStateChanged", Args: []introspect.Arg{
			{Name: "previous", Type: "s"}, {Name: "current", Type: "s"},
			{Name: "iface", Type: "s"}, {Name: "mode", Type: "s"}, {Name: "reason", Type: "s"},
		}},
	}
}
