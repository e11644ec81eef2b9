// Package config loads wardend's startup configuration the way
// fyrsmithlabs-contextd/internal/config loads contextd's: an optional YAML
// file overlaid by environment variables via knadh/koanf, unmarshaled into a
// plain struct with koanf tags, then defaulted and validated.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"wardend/internal/policy"
	"wardend/internal/softap"
)

// Config is wardend's complete startup configuration.
type Config struct {
	Bus      BusConfig      `koanf:"bus"`
	Log      LogConfig      `koanf:"log"`
	Carrier  CarrierConfig  `koanf:"carrier"`
	Recovery RecoveryConfig `koanf:"recovery"`
	SoftAp   SoftApConfig   `koanf:"softap"`
	Warden   WardenConfig   `koanf:"warden"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// BusConfig selects the D-Bus bus wardend registers its control surface on.
type BusConfig struct {
	Type string `koanf:"type"` // "session" or "system"
}

// LogConfig selects the logrus level.
type LogConfig struct {
	Level string `koanf:"level"`
}

// CarrierConfig mirrors policy.CarrierConfig with koanf tags;
// PolicyCarrierConfig converts it into the policy package's type so that
// package stays free of the
// config package's unmarshaling concerns.
type CarrierConfig struct {
	DisableWifiInEmergency             bool `koanf:"disable_wifi_in_emergency"`
	WifiOffDeferringTimeMillis         int  `koanf:"wifi_off_deferring_time_millis"`
	WifiDelayDisconnectOnImsLostMillis int  `koanf:"wifi_delay_disconnect_on_ims_lost_millis"`
}

// RecoveryConfig bounds self-recovery restart delay.
type RecoveryConfig struct {
	DelayMillis int `koanf:"delay_millis"`
}

// SoftApConfig holds the defaults seeded into a softap.Config when a caller
// doesn't fully specify one.
type SoftApConfig struct {
	Band                string `koanf:"band"`
	Security            string `koanf:"security"`
	SSIDPrefix           string `koanf:"ssid_prefix"`
	MaxClients          int    `koanf:"max_clients"`
	AutoShutdownEnabled bool   `koanf:"auto_shutdown_enabled"`
	ShutdownTimeoutSecs int    `koanf:"shutdown_timeout_secs"`
}

// WardenConfig holds Warden-level defaults.
type WardenConfig struct {
	StaApConcurrencySupported bool `koanf:"sta_ap_concurrency_supported"`
	ExtraDelayOnImsLostMillis int  `koanf:"extra_delay_on_ims_lost_millis"`
}

// MetricsConfig controls the Prometheus /metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

const maxConfigFileSize = 1 << 20 // 1MB

// Load reads configPath (if non-empty and present) as YAML, overlays
// WARDEND_*-prefixed environment variables, and returns a defaulted and
// validated Config. An empty or missing configPath is not an error —
// defaults plus environment overlay are enough to start wardend.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		info, err := os.Stat(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("stat config file %s: %w", configPath, err)
			}
		} else {
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file %s too large: %d bytes (max %d)", configPath, info.Size(), maxConfigFileSize)
			}
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		}
	}

	// WARDEND_BUS_TYPE -> bus.type, WARDEND_CARRIER_DISABLE_WIFI_IN_EMERGENCY -> carrier.disable_wifi_in_emergency
	if err := k.Load(env.Provider("WARDEND_", ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, "WARDEND_")
		lower := strings.ToLower(trimmed)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load WARDEND_* environment overlay: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Bus: BusConfig{Type: "system"},
		Log: LogConfig{Level: "info"},
		Carrier: CarrierConfig{
			DisableWifiInEmergency:             true,
			WifiOffDeferringTimeMillis:         1000,
			WifiDelayDisconnectOnImsLostMillis: 4000,
		},
		Recovery: RecoveryConfig{DelayMillis: 2000},
		SoftAp: SoftApConfig{
			Band:                "2ghz",
			Security:            "wpa3_sae_transition",
			SSIDPrefix:          "wardend",
			MaxClients:          8,
			AutoShutdownEnabled: true,
			ShutdownTimeoutSecs: 600,
		},
		Warden: WardenConfig{
			StaApConcurrencySupported: true,
			ExtraDelayOnImsLostMillis: 500,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Validate checks the configuration invariants Load and a hand-constructed
// Config must both satisfy before being handed to cmd/wardend's wiring.
func (c *Config) Validate() error {
	if c.Bus.Type != "session" && c.Bus.Type != "system" {
		return fmt.Errorf("invalid bus type %q (must be session or system)", c.Bus.Type)
	}
	if c.Recovery.DelayMillis < 0 {
		return fmt.Errorf("recovery delay must be non-negative, got %d", c.Recovery.DelayMillis)
	}
	if c.SoftAp.MaxClients < 0 {
		return fmt.Errorf("softap max clients must be non-negative, got %d", c.SoftAp.MaxClients)
	}
	if _, err := parseBand(c.SoftAp.Band); err != nil {
		return err
	}
	if _, err := parseSecurity(c.SoftAp.Security); err != nil {
		return err
	}
	return nil
}

// PolicyCarrierConfig converts to the policy package's carrier config type.
func (c *Config) PolicyCarrierConfig() policy.CarrierConfig {
	return policy.CarrierConfig{
		DisableWifiInEmergency:             c.Carrier.DisableWifiInEmergency,
		WifiOffDeferringTimeMillis:         c.Carrier.WifiOffDeferringTimeMillis,
		WifiDelayDisconnectOnImsLostMillis: c.Carrier.WifiDelayDisconnectOnImsLostMillis,
	}
}

// ExtraDelayOnImsLost returns the Warden DSC's extra-delay-on-IMS-lost knob
// as a time.Duration.
func (c *Config) ExtraDelayOnImsLost() time.Duration {
	return time.Duration(c.Warden.ExtraDelayOnImsLostMillis) * time.Millisecond
}

// RecoveryDelay returns the bounded self-recovery restart delay.
func (c *Config) RecoveryDelay() time.Duration {
	return time.Duration(c.Recovery.DelayMillis) * time.Millisecond
}

// DefaultSoftApConfig builds a softap.Config seeded from the SoftAp
// defaults section, for callers (D-Bus StartSoftAp with no explicit config)
// that want wardend's configured defaults rather than the zero value.
func (c *Config) DefaultSoftApConfig(ssidSuffix string) (softap.Config, error) {
	band, err := parseBand(c.SoftAp.Band)
	if err != nil {
		return softap.Config{}, err
	}
	sec, err := parseSecurity(c.SoftAp.Security)
	if err != nil {
		return softap.Config{}, err
	}
	ssid := c.SoftAp.SSIDPrefix
	if ssidSuffix != "" {
		ssid = ssid + "-" + ssidSuffix
	}
	return softap.Config{
		Band:                band,
		Security:            sec,
		SSID:                ssid,
		MaxClients:          c.SoftAp.MaxClients,
		AutoShutdownEnabled: c.SoftAp.AutoShutdownEnabled,
		ShutdownTimeout:     time.Duration(c.SoftAp.ShutdownTimeoutSecs) * time.Second,
	}, nil
}

func parseBand(s string) (softap.Band, error) {
	switch strings.ToLower(s) {
	case "2ghz":
		return softap.Band2GHz, nil
	case "5ghz":
		return softap.Band5GHz, nil
	case "6ghz":
		return softap.Band6GHz, nil
	case "dual":
		return softap.BandDual, nil
	default:
		return 0, fmt.Errorf("invalid softap band %q", s)
	}
}

func parseSecurity(s string) (softap.Security, error) {
	switch strings.ToLower(s) {
	case "open":
		return softap.SecurityOpen, nil
	case "wpa2_psk":
		return softap.SecurityWPA2PSK, nil
	case "wpa3_sae":
		return softap.SecurityWPA3SAE, nil
	case "wpa3_sae_transition":
		return softap.SecurityWPA3SAETransition, nil
	case "owe":
		return softap.SecurityOWE, nil
	case "owe_transition":
		return softap.SecurityOWETransition, nil
	default:
		return 0, fmt.Errorf("invalid softap security %q", s)
	}
}
