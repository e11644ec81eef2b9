// Package nativeif is the Native Interface Layer: it creates/destroys
// kernel interfaces, drives hostapd/supplicant (here, iwd), and delivers
// asynchronous up/down/destroyed callbacks. This package defines the
// contract and backs it with real adapters built on D-Bus (iwd) and
// netlink, because a Warden with nothing underneath it cannot be exercised
// end to end.
package nativeif

import "wardend/internal/softap"

// InterfaceCallback is delivered by the Native Interface Layer for the
// lifetime of one owned interface.
type InterfaceCallback interface {
	OnUp(ifaceName string)
	OnDown(ifaceName string)
	OnDestroyed(ifaceName string)
}

// HostapdListener is delivered for the lifetime of one started SoftAp.
type HostapdListener interface {
	OnFailure()
	OnInfoChanged(info softap.Info)
	OnConnectedClientsChanged(clients []string)
	// OnClientAssociating fires before a client is admitted, letting the
	// SoftAp-PMSM run its admission policy before the client
	// is fully accepted.
	OnClientAssociating(mac string)
}

// Layer is the full Native Interface Layer contract every PMSM drives.
type Layer interface {
	SetupClientScanMode(cb InterfaceCallback) (ifaceName string, err error)
	SetupSoftAp(cb InterfaceCallback, workSource string, isBridged bool) (ifaceName string, err error)
	SetupBridge(cb InterfaceCallback) (ifaceName string, err error)

	SwitchClientToScanMode(ifaceName string) bool
	SwitchClientToConnectivityMode(ifaceName string) bool

	TeardownInterface(ifaceName string)

	StartSoftAp(ifaceName string, cfg softap.Config, isTethered bool, l HostapdListener) bool
	SetCountryCode(ifaceName, countryCode string) bool
	SetApMacAddress(ifaceName, mac string) bool
	ResetApMacToFactory(ifaceName string) bool
	IsApSetMacAddressSupported(ifaceName string) bool

	IsInterfaceUp(ifaceName string) bool
	ForceClientDisconnect(ifaceName, mac, reason string) bool

	RegisterStatusListener(cb func(ready bool))
	RegisterClientAvailabilityListener(cb func(available bool))
	RegisterSoftApAvailabilityListener(cb func(available bool))

	// Capabilities reports the SoftAp feature bitset the current hardware
	// supports.
	Capabilities() softap.Capability
}
