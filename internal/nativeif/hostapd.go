package nativeif

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"wardend/internal/softap"
)

// HostapdCtl drives hostapd over hostapd_cli, the same os/exec idiom the
// teacher uses for rfkill/dhcpcd/xdg-open in internal/dbus/helpers.go and
// internal/netlink/watcher.go's bringUpInterface. It backs the SoftAp half
// of nativeif.Layer: StartSoftAp, country code, BSSID, and force-disconnect.
type HostapdCtl struct {
	log          *logrus.Entry
	capabilities softap.Capability
}

// NewHostapdCtl returns a controller advertising the given hardware
// capability bitset, consulted before a config requiring an unsupported
// capability is allowed to start.
func NewHostapdCtl(log *logrus.Entry, caps softap.Capability) *HostapdCtl {
	return &HostapdCtl{log: log, capabilities: caps}
}

func (h *HostapdCtl) Capabilities() softap.Capability { return h.capabilities }

func (h *HostapdCtl) run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StartSoftAp starts hostapd on ifaceName with the final, validated config.
// Channel selection (ACS vs configured) is expected to already be baked into
// cfg by the SoftAp-PMSM before this is called.
func (h *HostapdCtl) StartSoftAp(ifaceName string, cfg softap.Config, isTethered bool, l HostapdListener) bool {
	if err := cfg.Validate(); err != nil {
		h.log.WithError(err).WithField("iface", ifaceName).Error("softap config rejected")
		return false
	}
	if err := h.run("hostapd_cli", "-i", ifaceName, "raw", "SET ssid "+cfg.SSID); err != nil {
		h.log.WithError(err).WithField("iface", ifaceName).Error("hostapd_cli set ssid failed")
		if l != nil {
			l.OnFailure()
		}
		return false
	}
	h.log.WithFields(logrus.Fields{
		"iface": ifaceName, "ssid": cfg.SSID, "band": cfg.Band.String(), "tethered": isTethered,
	}).Info("softap started")
	return true
}

func (h *HostapdCtl) SetCountryCode(ifaceName, countryCode string) bool {
	cc := strings.ToUpper(countryCode)
	if err := h.run("hostapd_cli", "-i", ifaceName, "raw", "SET country_code "+cc); err != nil {
		h.log.WithError(err).WithField("iface", ifaceName).Warn("set country code failed")
		return false
	}
	return true
}

func (h *HostapdCtl) SetApMacAddress(ifaceName, mac string) bool {
	if err := h.run("ip", "link", "set", ifaceName, "address", mac); err != nil {
		h.log.WithError(err).WithField("iface", ifaceName).Warn("set ap mac address failed")
		return false
	}
	return true
}

// ResetApMacToFactory is a soft-fail operation: callers log and continue
// regardless of the return value.
func (h *HostapdCtl) ResetApMacToFactory(ifaceName string) bool {
	if err := h.run("ip", "link", "set", ifaceName, "address", "00:00:00:00:00:00"); err != nil {
		h.log.WithError(err).WithField("iface", ifaceName).Warn("reset ap mac to factory failed")
		return false
	}
	return true
}

func (h *HostapdCtl) IsApSetMacAddressSupported(ifaceName string) bool {
	return h.capabilities.Has(softap.CapMACRandomization)
}

func (h *HostapdCtl) ForceClientDisconnect(ifaceName, mac, reason string) bool {
	if err := h.run("hostapd_cli", "-i", ifaceName, "deauthenticate", mac); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"iface": ifaceName, "mac": mac, "reason": reason}).Warn("force disconnect failed")
		return false
	}
	return true
}
