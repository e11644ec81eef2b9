package nativeif

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// iwd D-Bus surface.
const (
	iwdService   = "net.connman.iwd"
	stationIface = "net.connman.iwd.Station"
	deviceIface  = "net.connman.iwd.Device"
)

// DBusIWD adapts net.connman.iwd over D-Bus into the nativeif.Layer contract
// for the client-mode half of the interface: scan-mode setup, teardown, and
// scan<->connectivity mode switching. SoftAp bring-up is handled by
// HostapdCtl in hostapd.go, and up/down/destroyed delivery is handled by
// NetlinkMonitor in netlink_monitor.go — DBusIWD only issues the Mode
// property writes iwd needs to flip a device between "station" and "ap".
type DBusIWD struct {
	conn *dbus.Conn
	log  *logrus.Entry

	mu         sync.Mutex
	devicePath dbus.ObjectPath
	ifaceName  string

	statusListeners []func(bool)
	clientAvailCBs  []func(bool)
	softApAvailCBs  []func(bool)
}

// NewDBusIWD connects to the system bus and locates the Wi-Fi device by
// walking net.connman.iwd's object tree for a Device interface.
func NewDBusIWD(log *logrus.Entry) (*DBusIWD, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("nativeif: connect system bus: %w", err)
	}
	d := &DBusIWD{conn: conn, log: log}
	if err := d.findDevice(); err != nil {
		log.WithError(err).Warn("iwd device not found yet; will retry on first setup call")
	}
	return d, nil
}

func (d *DBusIWD) findDevice() error {
	obj := d.conn.Object(iwdService, "/")
	var result map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&result); err != nil {
		return fmt.Errorf("GetManagedObjects: %w", err)
	}
	for path, ifaces := range result {
		if devProps, ok := ifaces[deviceIface]; ok {
			d.mu.Lock()
			d.devicePath = path
			d.mu.Unlock()
			if nameV, ok := devProps["Name"]; ok {
				d.mu.Lock()
				d.ifaceName, _ = nameV.Value().(string)
				d.mu.Unlock()
			}
			return nil
		}
	}
	return fmt.Errorf("no wifi device found")
}

// SetupClientScanMode requests a scan-mode client interface. iwd does not
// model interface creation/destruction the way a HAL would — a Device
// already exists in "station" mode — so this sets Mode=station and reports
// the existing device name, failing with an empty name if no device can be
// found or the Mode write fails.
func (d *DBusIWD) SetupClientScanMode(cb InterfaceCallback) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.devicePath == "" {
		if err := d.findDeviceLocked(); err != nil {
			return "", fmt.Errorf("nativeif: %w", err)
		}
	}
	obj := d.conn.Object(iwdService, d.devicePath)
	if err := obj.Call("org.freedesktop.DBus.Properties.Set", 0, deviceIface, "Mode", dbus.MakeVariant("station")).Err; err != nil {
		return "", fmt.Errorf("nativeif: set station mode: %w", err)
	}
	d.log.WithField("iface", d.ifaceName).Info("client scan-mode interface ready")
	return d.ifaceName, nil
}

func (d *DBusIWD) findDeviceLocked() error {
	obj := d.conn.Object(iwdService, "/")
	var result map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&result); err != nil {
		return err
	}
	for path, ifaces := range result {
		if devProps, ok := ifaces[deviceIface]; ok {
			d.devicePath = path
			if nameV, ok := devProps["Name"]; ok {
				d.ifaceName, _ = nameV.Value().(string)
			}
			return nil
		}
	}
	return fmt.Errorf("no wifi device found")
}

// SwitchClientToScanMode disconnects the station and drops it to scan-only
// duty without tearing the interface down.
func (d *DBusIWD) SwitchClientToScanMode(ifaceName string) bool {
	return d.setStationDisconnected()
}

// SwitchClientToConnectivityMode implements Started/ScanOnly ->
// SWITCH_TO_CONNECT.
func (d *DBusIWD) SwitchClientToConnectivityMode(ifaceName string) bool {
	// iwd stations are always connectivity-capable; entering connect mode is
	// simply a matter of being allowed to call Network.Connect, which the
	// Client-PMSM's connection engine does. There is no separate mode flip.
	return true
}

func (d *DBusIWD) setStationDisconnected() bool {
	d.mu.Lock()
	stationPath := d.devicePath
	d.mu.Unlock()
	if stationPath == "" {
		return false
	}
	obj := d.conn.Object(iwdService, stationPath)
	err := obj.Call(stationIface+".Disconnect", 0).Err
	return err == nil
}

// SetupSoftAp and SetupBridge are handled by swapping Mode to "ap"; the
// actual hostapd-equivalent bring-up is HostapdCtl's job (hostapd.go), since
// iwd's own AccessPoint interface only covers a simplified subset of what
// a full SoftAp needs (ACS, dual-band, MAC/country-code control).
func (d *DBusIWD) SetupSoftAp(cb InterfaceCallback, workSource string, isBridged bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.devicePath == "" {
		if err := d.findDeviceLocked(); err != nil {
			return "", fmt.Errorf("nativeif: %w", err)
		}
	}
	obj := d.conn.Object(iwdService, d.devicePath)
	if err := obj.Call("org.freedesktop.DBus.Properties.Set", 0, deviceIface, "Mode", dbus.MakeVariant("ap")).Err; err != nil {
		return "", fmt.Errorf("nativeif: set ap mode: %w", err)
	}
	d.log.WithFields(logrus.Fields{"iface": d.ifaceName, "work_source": workSource, "bridged": isBridged}).Info("softap interface ready")
	return d.ifaceName, nil
}

func (d *DBusIWD) SetupBridge(cb InterfaceCallback) (string, error) {
	// Bridging two radios together is outside what iwd/D-Bus expose; a real
	// HAL would create a br-ap0 device. We name it deterministically so the
	// dual-band SoftAp-PMSM path has something to tear down symmetrically.
	return "br-ap0", nil
}

func (d *DBusIWD) TeardownInterface(ifaceName string) {
	d.mu.Lock()
	devicePath := d.devicePath
	d.mu.Unlock()
	if devicePath == "" {
		return
	}
	obj := d.conn.Object(iwdService, devicePath)
	if err := obj.Call("org.freedesktop.DBus.Properties.Set", 0, deviceIface, "Mode", dbus.MakeVariant("station")).Err; err != nil {
		d.log.WithError(err).WithField("iface", ifaceName).Warn("teardown: failed to reset mode")
	}
}

func (d *DBusIWD) IsInterfaceUp(ifaceName string) bool {
	d.mu.Lock()
	devicePath := d.devicePath
	d.mu.Unlock()
	if devicePath == "" {
		return false
	}
	var props map[string]dbus.Variant
	obj := d.conn.Object(iwdService, devicePath)
	if err := obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, deviceIface).Store(&props); err != nil {
		return false
	}
	if v, ok := props["Powered"]; ok {
		up, _ := v.Value().(bool)
		return up
	}
	return false
}

func (d *DBusIWD) RegisterStatusListener(cb func(bool)) {
	d.mu.Lock()
	d.statusListeners = append(d.statusListeners, cb)
	d.mu.Unlock()
}

func (d *DBusIWD) RegisterClientAvailabilityListener(cb func(bool)) {
	d.mu.Lock()
	d.clientAvailCBs = append(d.clientAvailCBs, cb)
	d.mu.Unlock()
	// iwd devices are always client-capable once found.
	cb(d.devicePath != "")
}

func (d *DBusIWD) RegisterSoftApAvailabilityListener(cb func(bool)) {
	d.mu.Lock()
	d.softApAvailCBs = append(d.softApAvailCBs, cb)
	d.mu.Unlock()
	cb(d.devicePath != "")
}

func (d *DBusIWD) Close() error {
	return d.conn.Close()
}
