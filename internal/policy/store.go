// Package policy is the Settings/Policy Store collaborator: airplane mode,
// Wi-Fi toggle, scan-always, location mode, and carrier
// config. It is out of scope as a subsystem — this is a thin, mutable,
// thread-safe snapshot the Warden reads and the outside world (D-Bus,
// telephony broadcasts) writes.
package policy

import "sync"

// CarrierConfig holds the carrier-specific knobs the Warden and DSC consult.
// These would normally come from CarrierConfigManager; here they are part of
// the same in-memory store, loaded once from internal/config at startup.
type CarrierConfig struct {
	DisableWifiInEmergency    bool
	WifiOffDeferringTimeMillis int
	WifiDelayDisconnectOnImsLostMillis int
}

// Snapshot is an immutable read of the store at a point in time.
type Snapshot struct {
	WifiToggle    bool
	AirplaneMode  bool
	ScanAlways    bool
	LocationMode  bool
	Carrier       CarrierConfig
}

// ShouldEnableSta implements the scan-enable policy:
// shouldEnableSta := wifiToggle || (locationMode && scanAlwaysAvailable).
func (s Snapshot) ShouldEnableSta() bool {
	return s.WifiToggle || (s.LocationMode && s.ScanAlways)
}

// Store is the mutable, thread-safe backing for Snapshot.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore creates a Store seeded with the given carrier config.
func NewStore(carrier CarrierConfig) *Store {
	return &Store{snap: Snapshot{Carrier: carrier}}
}

// Get returns the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetWifiToggle updates the user's Wi-Fi toggle.
func (s *Store) SetWifiToggle(on bool) {
	s.mu.Lock()
	s.snap.WifiToggle = on
	s.mu.Unlock()
}

// SetAirplaneMode updates airplane mode.
func (s *Store) SetAirplaneMode(on bool) {
	s.mu.Lock()
	s.snap.AirplaneMode = on
	s.mu.Unlock()
}

// SetScanAlways updates the scan-always-available setting.
func (s *Store) SetScanAlways(on bool) {
	s.mu.Lock()
	s.snap.ScanAlways = on
	s.mu.Unlock()
}

// SetLocationMode updates the location-mode setting.
func (s *Store) SetLocationMode(on bool) {
	s.mu.Lock()
	s.snap.LocationMode = on
	s.mu.Unlock()
}
