package nativeif

import (
	"github.com/sirupsen/logrus"

	"wardend/internal/softap"
)

// Composite wires DBusIWD (setup/teardown/mode-switch over iwd), HostapdCtl
// (SoftAp bring-up and client control), and NetlinkMonitor (up/down/destroyed
// delivery) into the single nativeif.Layer contract every PMSM drives.
type Composite struct {
	iwd     *DBusIWD
	hostapd *HostapdCtl
	nl      *NetlinkMonitor
	log     *logrus.Entry
}

// NewComposite builds the default, runnable Native Interface Layer.
func NewComposite(log *logrus.Entry, caps softap.Capability) (*Composite, error) {
	iwd, err := NewDBusIWD(log.WithField("adapter", "iwd"))
	if err != nil {
		return nil, err
	}
	nl, err := NewNetlinkMonitor(log.WithField("adapter", "netlink"))
	if err != nil {
		iwd.Close()
		return nil, err
	}
	return &Composite{
		iwd:     iwd,
		hostapd: NewHostapdCtl(log.WithField("adapter", "hostapd"), caps),
		nl:      nl,
		log:     log,
	}, nil
}

// Run starts the netlink event loop; intended to be run in its own goroutine.
func (c *Composite) Run() { c.nl.Run() }

func (c *Composite) Close() {
	c.nl.Close()
	c.iwd.Close()
}

func (c *Composite) SetupClientScanMode(cb InterfaceCallback) (string, error) {
	name, err := c.iwd.SetupClientScanMode(cb)
	if err == nil {
		c.nl.Register(name, cb)
	}
	return name, err
}

func (c *Composite) SetupSoftAp(cb InterfaceCallback, workSource string, isBridged bool) (string, error) {
	name, err := c.iwd.SetupSoftAp(cb, workSource, isBridged)
	if err == nil {
		c.nl.Register(name, cb)
	}
	return name, err
}

func (c *Composite) SetupBridge(cb InterfaceCallback) (string, error) {
	name, err := c.iwd.SetupBridge(cb)
	if err == nil {
		c.nl.Register(name, cb)
	}
	return name, err
}

func (c *Composite) SwitchClientToScanMode(ifaceName string) bool {
	return c.iwd.SwitchClientToScanMode(ifaceName)
}

func (c *Composite) SwitchClientToConnectivityMode(ifaceName string) bool {
	return c.iwd.SwitchClientToConnectivityMode(ifaceName)
}

func (c *Composite) TeardownInterface(ifaceName string) {
	c.iwd.TeardownInterface(ifaceName)
	c.nl.Unregister(ifaceName)
}

func (c *Composite) StartSoftAp(ifaceName string, cfg softap.Config, isTethered bool, l HostapdListener) bool {
	return c.hostapd.StartSoftAp(ifaceName, cfg, isTethered, l)
}

func (c *Composite) SetCountryCode(ifaceName, cc string) bool {
	return c.hostapd.SetCountryCode(ifaceName, cc)
}

func (c *Composite) SetApMacAddress(ifaceName, mac string) bool {
	return c.hostapd.SetApMacAddress(ifaceName, mac)
}

func (c *Composite) ResetApMacToFactory(ifaceName string) bool {
	return c.hostapd.ResetApMacToFactory(ifaceName)
}

func (c *Composite) IsApSetMacAddressSupported(ifaceName string) bool {
	return c.hostapd.IsApSetMacAddressSupported(ifaceName)
}

func (c *Composite) IsInterfaceUp(ifaceName string) bool {
	return c.iwd.IsInterfaceUp(ifaceName)
}

func (c *Composite) ForceClientDisconnect(ifaceName, mac, reason string) bool {
	return c.hostapd.ForceClientDisconnect(ifaceName, mac, reason)
}

func (c *Composite) RegisterStatusListener(cb func(bool)) { c.iwd.RegisterStatusListener(cb) }
func (c *Composite) RegisterClientAvailabilityListener(cb func(bool)) {
	c.iwd.RegisterClientAvailabilityListener(cb)
}
func (c *Composite) RegisterSoftApAvailabilityListener(cb func(bool)) {
	c.iwd.RegisterSoftApAvailabilityListener(cb)
}

func (c *Composite) Capabilities() softap.Capability { return c.hostapd.Capabilities() }
