package softap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_RequiresSSID(t *testing.T) {
	cfg := Config{Band: Band2GHz}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestConfig_Validate_5GHzRequiresCountryCode(t *testing.T) {
	cfg := Config{Band: Band5GHz, SSID: "home"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestConfig_Validate_5GHzWithCountryCodeIsValid(t *testing.T) {
	cfg := Config{Band: Band5GHz, SSID: "home", CountryCode: "US"}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_2GHzNeedsNoCountryCode(t *testing.T) {
	cfg := Config{Band: Band2GHz, SSID: "home"}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_EffectiveMaxClients_UserOverrideBelowCapabilityWins(t *testing.T) {
	cfg := Config{MaxClients: 2}
	assert.Equal(t, 2, cfg.EffectiveMaxClients(8))
}

func TestConfig_EffectiveMaxClients_UserOverrideAboveCapabilityIsIgnored(t *testing.T) {
	cfg := Config{MaxClients: 20}
	assert.Equal(t, 8, cfg.EffectiveMaxClients(8))
}

func TestConfig_EffectiveMaxClients_NoOverrideUsesCapability(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 8, cfg.EffectiveMaxClients(8))
}

func TestNeedsRestart_SSIDChangeRequiresRestart(t *testing.T) {
	old := Config{SSID: "a"}
	new := Config{SSID: "b"}
	assert.True(t, NeedsRestart(old, new))
}

func TestNeedsRestart_NoFieldsChangedMeansNoRestart(t *testing.T) {
	cfg := Config{SSID: "a", Band: Band2GHz, Security: SecurityOpen}
	assert.False(t, NeedsRestart(cfg, cfg))
}

func TestNeedsRestart_MaxClientsChangeAloneDoesNotRequireRestart(t *testing.T) {
	old := Config{SSID: "a", MaxClients: 4}
	new := Config{SSID: "a", MaxClients: 8}
	assert.False(t, NeedsRestart(old, new))
}

func TestRuntime_BlockedMetricEmittedGuardsOncePerEpoch(t *testing.T) {
	r := NewRuntime()
	assert.False(t, r.BlockedMetricEmitted())
	r.MarkBlockedMetricEmitted()
	assert.True(t, r.BlockedMetricEmitted())
	r.ResetEpoch()
	assert.False(t, r.BlockedMetricEmitted())
}

func TestBand_RequiresCountryCode(t *testing.T) {
	assert.False(t, Band2GHz.RequiresCountryCode())
	assert.True(t, Band5GHz.RequiresCountryCode())
	assert.True(t, Band6GHz.RequiresCountryCode())
}

func TestCapability_Has(t *testing.T) {
	caps := CapWPA3SAE | CapACS
	assert.True(t, caps.Has(CapWPA3SAE))
	assert.True(t, caps.Has(CapACS))
	assert.False(t, caps.Has(CapMaxClientsLimit))
}

func TestDefaultShutdownTimeout_MatchesTenMinutes(t *testing.T) {
	assert.Equal(t, 10*time.Minute, DefaultShutdownTimeout)
}
