package dbusapi

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"wardend/internal/role"
	"wardend/internal/softap"
)

// SoftApDefaults supplies the config package's softap defaults for
// StartSoftAp calls that don't carry a full configuration, mirroring the
// teacher's StartHotspot(ssid, password) convenience signature while still
// producing a complete softap.Config for the Warden. *config.Config
// satisfies this.
type SoftApDefaults interface {
	DefaultSoftApConfig(ssidSuffix string) (softap.Config, error)
}

// SetDefaults attaches the loaded configuration so StartSoftAp can build a
// full softap.Config from just an SSID suffix.
func (s *Service) SetDefaults(d SoftApDefaults) { s.defaults = d }

// WifiToggled forwards the user's Wi-Fi toggle to the Warden.
func (s *Service) WifiToggled() *dbus.Error {
	s.warden.WifiToggled()
	return nil
}

// AirplaneToggled forwards airplane mode changes to the Warden.
func (s *Service) AirplaneToggled() *dbus.Error {
	s.warden.AirplaneToggled()
	return nil
}

// ScanAlwaysModeChanged forwards scan-always-available changes to the Warden.
func (s *Service) ScanAlwaysModeChanged() *dbus.Error {
	s.warden.ScanAlwaysModeChanged()
	return nil
}

// LocationModeChanged forwards location-mode changes to the Warden.
func (s *Service) LocationModeChanged() *dbus.Error {
	s.warden.LocationModeChanged()
	return nil
}

// StartSoftAp starts a SoftAp in the given mode ("tethered" or "local_only")
// with an SSID built from the configured prefix plus ssidSuffix.
func (s *Service) StartSoftAp(mode, ssidSuffix string) *dbus.Error {
	r, err := parseApRole(mode)
	if err != nil {
		return dbus.NewError(Interface+".InvalidMode", []interface{}{err.Error()})
	}
	if s.defaults == nil {
		return dbus.NewError(Interface+".NoDefaults", []interface{}{"no softap defaults configured"})
	}
	cfg, err := s.defaults.DefaultSoftApConfig(ssidSuffix)
	if err != nil {
		return dbus.NewError(Interface+".InvalidConfig", []interface{}{err.Error()})
	}
	s.warden.StartSoftAp(r, cfg)
	return nil
}

// StopSoftAp stops the SoftAp in the given mode, if one is running.
func (s *Service) StopSoftAp(mode string) *dbus.Error {
	r, err := parseApRole(mode)
	if err != nil {
		return dbus.NewError(Interface+".InvalidMode", []interface{}{err.Error()})
	}
	s.warden.StopSoftAp(r)
	return nil
}

// RecoveryDisableWifi forwards a self-recovery disable request to the Warden.
func (s *Service) RecoveryDisableWifi() *dbus.Error {
	s.warden.RecoveryDisableWifi()
	return nil
}

// RecoveryRestartWifi forwards a self-recovery restart request to the Warden.
func (s *Service) RecoveryRestartWifi(reason string) *dbus.Error {
	s.warden.RecoveryRestartWifi(reason)
	return nil
}

// EmergencyCallbackModeChanged forwards ECBM transitions to the Warden.
func (s *Service) EmergencyCallbackModeChanged(on bool) *dbus.Error {
	s.warden.EmergencyCallbackModeChanged(on)
	return nil
}

// EmergencyCallStateChanged forwards active-emergency-call transitions to the Warden.
func (s *Service) EmergencyCallStateChanged(on bool) *dbus.Error {
	s.warden.EmergencyCallStateChanged(on)
	return nil
}

// DumpGraveyard renders the Warden's Client/SoftAp PMSM graveyard, backing
// the `wardend diag` CLI subcommand the way Graveyard.dump(fd, pw, args)
// backs AOSP's dumpsys output.
func (s *Service) DumpGraveyard() (string, *dbus.Error) {
	var b strings.Builder
	s.warden.Graveyard().Dump(&b)
	return b.String(), nil
}

func parseApRole(mode string) (role.Role, error) {
	switch mode {
	case "tethered":
		return role.SoftApTethered, nil
	case "local_only":
		return role.SoftApLocalOnly, nil
	default:
		return role.Unknown, fmt.Errorf("invalid softap mode %q (want tethered or local_only)", mode)
	}
}
