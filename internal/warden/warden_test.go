package warden

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardend/internal/graveyard"
	"wardend/internal/nativeif"
	"wardend/internal/pmsm"
	"wardend/internal/policy"
	"wardend/internal/role"
	"wardend/internal/softap"
	"wardend/internal/telephony"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("test", true)
}

// fakeLayer is a deterministic nativeif.Layer for Warden tests; every
// interface comes up immediately under a counter-derived name.
type fakeLayer struct {
	mu   sync.Mutex
	next int
}

func newFakeLayer() *fakeLayer { return &fakeLayer{} }

func (f *fakeLayer) nextIface(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return prefix + string(rune('0'+f.next))
}

func (f *fakeLayer) SetupClientScanMode(cb nativeif.InterfaceCallback) (string, error) {
	return f.nextIface("wlan"), nil
}
func (f *fakeLayer) SetupSoftAp(cb nativeif.InterfaceCallback, workSource string, isBridged bool) (string, error) {
	return f.nextIface("ap"), nil
}
func (f *fakeLayer) SetupBridge(cb nativeif.InterfaceCallback) (string, error) {
	return f.nextIface("br"), nil
}
func (f *fakeLayer) SwitchClientToScanMode(ifaceName string) bool         { return true }
func (f *fakeLayer) SwitchClientToConnectivityMode(ifaceName string) bool { return true }
func (f *fakeLayer) TeardownInterface(ifaceName string)                  {}
func (f *fakeLayer) StartSoftAp(ifaceName string, cfg softap.Config, isTethered bool, l nativeif.HostapdListener) bool {
	return true
}
func (f *fakeLayer) SetCountryCode(ifaceName, countryCode string) bool { return true }
func (f *fakeLayer) SetApMacAddress(ifaceName, mac string) bool        { return true }
func (f *fakeLayer) ResetApMacToFactory(ifaceName string) bool         { return true }
func (f *fakeLayer) IsApSetMacAddressSupported(ifaceName string) bool  { return true }
func (f *fakeLayer) IsInterfaceUp(ifaceName string) bool               { return true }
func (f *fakeLayer) ForceClientDisconnect(ifaceName, mac, reason string) bool { return true }
func (f *fakeLayer) RegisterStatusListener(cb func(ready bool))               {}
func (f *fakeLayer) RegisterClientAvailabilityListener(cb func(bool))         {}
func (f *fakeLayer) RegisterSoftApAvailabilityListener(cb func(bool))         {}
func (f *fakeLayer) Capabilities() softap.Capability                         { return 0 }

func newTestWarden(t *testing.T, carrier policy.CarrierConfig) (*Warden, *policy.Store) {
	t.Helper()
	store := policy.NewStore(carrier)
	w := New(newFakeLayer(), store, telephony.None, pmsm.NoOpMetrics, testLogger(), Config{})
	t.Cleanup(w.Close)
	return w, store
}

func eventuallyPrimary(t *testing.T, w *Warden) *pmsm.ClientPMSM {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if pm, ok := w.PrimaryClientModeManager(); ok {
			return pm
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a primary client to appear")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func eventuallyNoPrimary(t *testing.T, w *Warden) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := w.PrimaryClientModeManager(); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the primary client to disappear")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWarden_WifiToggleOnCreatesPrimaryClient(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()

	pm := eventuallyPrimary(t, w)
	assert.Equal(t, role.ClientPrimary, pm.Role())
}

func TestWarden_AirplaneModeShutsDownStation(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()
	eventuallyPrimary(t, w)

	store.SetAirplaneMode(true)
	w.AirplaneToggled()

	eventuallyNoPrimary(t, w)
}

func TestWarden_ScanAlwaysWithoutWifiToggleStartsScanOnly(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetScanAlways(true)
	store.SetLocationMode(true)
	w.ScanAlwaysModeChanged()

	deadline := time.After(2 * time.Second)
	for {
		if pm, ok := w.ScanOnlyClientModeManager(); ok {
			assert.Equal(t, role.ClientScanOnly, pm.Role())
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for scan-only client")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWarden_ActiveInterfacesReflectsLivePMSMs(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()
	eventuallyPrimary(t, w)

	deadline := time.After(2 * time.Second)
	for {
		ifaces := w.ActiveInterfaces()
		if len(ifaces) == 1 {
			assert.Equal(t, "wlan1", ifaces[0])
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ActiveInterfaces to report the primary's interface")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWarden_EmergencyCallStopsSoftApAndStation(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{DisableWifiInEmergency: true})
	store.SetWifiToggle(true)
	w.WifiToggled()
	eventuallyPrimary(t, w)

	w.StartSoftAp(role.SoftApTethered, softap.Config{Band: softap.Band2GHz, Security: softap.SecurityOpen, SSID: "wardend-ap"})

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := w.TetheredSoftApManager(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for softap to start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	w.EmergencyCallStateChanged(true)

	eventuallyNoPrimary(t, w)
	deadline = time.After(2 * time.Second)
	for {
		if _, ok := w.TetheredSoftApManager(); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for softap to stop during emergency overlay")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWarden_RequestLocalOnlyFallsBackToPrimaryWithoutConcurrency(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()
	primary := eventuallyPrimary(t, w)

	resultCh := make(chan *pmsm.ClientPMSM, 1)
	w.RequestLocalOnlyClientModeManager(func(pm *pmsm.ClientPMSM) {
		resultCh <- pm
	})

	select {
	case pm := <-resultCh:
		require.NotNil(t, pm)
		assert.Equal(t, primary.ID(), pm.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for local-only fallback callback")
	}
}

func TestWarden_RequestLocalOnlyCreatesSecondClientWhenAvailable(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()
	primary := eventuallyPrimary(t, w)

	w.enqueue(wardenMsg{kind: msgClientAvailabilityChanged, on: true})

	resultCh := make(chan *pmsm.ClientPMSM, 1)
	w.RequestLocalOnlyClientModeManager(func(pm *pmsm.ClientPMSM) {
		resultCh <- pm
	})

	select {
	case pm := <-resultCh:
		require.NotNil(t, pm)
		assert.NotEqual(t, primary.ID(), pm.ID())
		assert.Equal(t, role.ClientLocalOnly, pm.Role())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for local-only client creation")
	}
}

func TestWarden_ClientMidLifeFailureTriggersRecoveryRestart(t *testing.T) {
	store := policy.NewStore(policy.CarrierConfig{})
	w := New(newFakeLayer(), store, telephony.None, pmsm.NoOpMetrics, testLogger(), Config{RecoveryDelay: 20 * time.Millisecond})
	t.Cleanup(w.Close)

	store.SetWifiToggle(true)
	w.WifiToggled()
	primary := eventuallyPrimary(t, w)
	iface := primary.IfaceName()

	primary.OnDown(iface)

	eventuallyNoPrimary(t, w)
	eventuallyPrimary(t, w)
}

func TestWarden_GraveyardRecordsStoppedClient(t *testing.T) {
	w, store := newTestWarden(t, policy.CarrierConfig{})
	store.SetWifiToggle(true)
	w.WifiToggled()
	eventuallyPrimary(t, w)

	store.SetWifiToggle(false)
	w.WifiToggled()
	eventuallyNoPrimary(t, w)

	deadline := time.After(2 * time.Second)
	for {
		entries := w.Graveyard().Snapshot(graveyard.Client)
		if len(entries) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for graveyard to record the stopped client")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
