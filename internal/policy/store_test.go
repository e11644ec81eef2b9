package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_ShouldEnableSta_WifiToggleAlone(t *testing.T) {
	s := Snapshot{WifiToggle: true}
	assert.True(t, s.ShouldEnableSta())
}

func TestSnapshot_ShouldEnableSta_LocationAndScanAlways(t *testing.T) {
	s := Snapshot{LocationMode: true, ScanAlways: true}
	assert.True(t, s.ShouldEnableSta())
}

func TestSnapshot_ShouldEnableSta_LocationWithoutScanAlwaysIsFalse(t *testing.T) {
	s := Snapshot{LocationMode: true, ScanAlways: false}
	assert.False(t, s.ShouldEnableSta())
}

func TestSnapshot_ShouldEnableSta_NothingSetIsFalse(t *testing.T) {
	s := Snapshot{}
	assert.False(t, s.ShouldEnableSta())
}

func TestStore_GetReflectsSetters(t *testing.T) {
	carrier := CarrierConfig{DisableWifiInEmergency: true, WifiOffDeferringTimeMillis: 500}
	store := NewStore(carrier)

	store.SetWifiToggle(true)
	store.SetAirplaneMode(true)
	store.SetScanAlways(true)
	store.SetLocationMode(true)

	snap := store.Get()
	assert.True(t, snap.WifiToggle)
	assert.True(t, snap.AirplaneMode)
	assert.True(t, snap.ScanAlways)
	assert.True(t, snap.LocationMode)
	assert.Equal(t, carrier, snap.Carrier)
}

func TestStore_SettersAreIndependent(t *testing.T) {
	store := NewStore(CarrierConfig{})
	store.SetWifiToggle(true)
	store.SetWifiToggle(false)
	store.SetAirplaneMode(true)

	snap := store.Get()
	assert.False(t, snap.WifiToggle)
	assert.True(t, snap.AirplaneMode)
}
