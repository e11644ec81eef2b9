package pmsm

import (
	"sync"

	"wardend/internal/nativeif"
	"wardend/internal/role"
	"wardend/internal/softap"
)

// fakeLayer is a minimal, deterministic nativeif.Layer for PMSM tests: every
// setup call succeeds and returns a fixed interface name unless a test
// overrides one of the *Err fields.
type fakeLayer struct {
	mu sync.Mutex

	ifaceName string
	caps      softap.Capability

	setupClientErr error
	setupSoftApErr error
	startSoftApOK  bool

	switchToConnectOK bool
	switchToScanOK    bool

	torndown        []string
	forceDisconnect []string
}

func newFakeLayer() *fakeLayer {
	return &fakeLayer{
		ifaceName:         "wlan0",
		startSoftApOK:     true,
		switchToConnectOK: true,
		switchToScanOK:    true,
	}
}

func (f *fakeLayer) SetupClientScanMode(cb nativeif.InterfaceCallback) (string, error) {
	if f.setupClientErr != nil {
		return "", f.setupClientErr
	}
	return f.ifaceName, nil
}

func (f *fakeLayer) SetupSoftAp(cb nativeif.InterfaceCallback, workSource string, isBridged bool) (string, error) {
	if f.setupSoftApErr != nil {
		return "", f.setupSoftApErr
	}
	return f.ifaceName, nil
}

func (f *fakeLayer) SetupBridge(cb nativeif.InterfaceCallback) (string, error) {
	return f.ifaceName, nil
}

func (f *fakeLayer) SwitchClientToScanMode(ifaceName string) bool       { return f.switchToScanOK }
func (f *fakeLayer) SwitchClientToConnectivityMode(ifaceName string) bool { return f.switchToConnectOK }

func (f *fakeLayer) TeardownInterface(ifaceName string) {
	f.mu.Lock()
	f.torndown = append(f.torndown, ifaceName)
	f.mu.Unlock()
}

func (f *fakeLayer) StartSoftAp(ifaceName string, cfg softap.Config, isTethered bool, l nativeif.HostapdListener) bool {
	return f.startSoftApOK
}
func (f *fakeLayer) SetCountryCode(ifaceName, countryCode string) bool { return true }
func (f *fakeLayer) SetApMacAddress(ifaceName, mac string) bool        { return true }
func (f *fakeLayer) ResetApMacToFactory(ifaceName string) bool         { return true }
func (f *fakeLayer) IsApSetMacAddressSupported(ifaceName string) bool  { return true }
func (f *fakeLayer) IsInterfaceUp(ifaceName string) bool               { return true }

func (f *fakeLayer) ForceClientDisconnect(ifaceName, mac, reason string) bool {
	f.mu.Lock()
	f.forceDisconnect = append(f.forceDisconnect, mac)
	f.mu.Unlock()
	return true
}

func (f *fakeLayer) RegisterStatusListener(cb func(ready bool))              {}
func (f *fakeLayer) RegisterClientAvailabilityListener(cb func(bool))        {}
func (f *fakeLayer) RegisterSoftApAvailabilityListener(cb func(bool))        {}
func (f *fakeLayer) Capabilities() softap.Capability                        { return f.caps }

// fakeListener records every lifecycle callback on buffered channels so
// tests can block on the exact event they expect without sleeping.
type fakeListener struct {
	started      chan role.Role
	roleChanged  chan role.Role
	stopped      chan struct{}
	startFailure chan error
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		started:      make(chan role.Role, 4),
		roleChanged:  make(chan role.Role, 4),
		stopped:      make(chan struct{}, 4),
		startFailure: make(chan error, 4),
	}
}

func (f *fakeListener) OnStarted(id int, r role.Role)      { f.started <- r }
func (f *fakeListener) OnRoleChanged(id int, r role.Role)  { f.roleChanged <- r }
func (f *fakeListener) OnStopped(id int)                   { f.stopped <- struct{}{} }
func (f *fakeListener) OnStartFailure(id int, err error)   { f.startFailure <- err }

// recordingListener is a fakeListener that additionally implements
// MidLifeFailureListener, for tests that assert on the distinct
// self-recovery-facing callback.
type recordingListener struct {
	*fakeListener
	midLifeFailure chan ErrKind
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		fakeListener:   newFakeListener(),
		midLifeFailure: make(chan ErrKind, 4),
	}
}

func (r *recordingListener) OnMidLifeFailure(id int, kind ErrKind) { r.midLifeFailure <- kind }

// fakeWifiSink records Wi-Fi state broadcasts.
type fakeWifiSink struct {
	changes chan WifiState
}

func newFakeWifiSink() *fakeWifiSink {
	return &fakeWifiSink{changes: make(chan WifiState, 8)}
}

func (f *fakeWifiSink) OnWifiStateChanged(previous, current WifiState) { f.changes <- current }

// fakeApSink records AP state broadcasts.
type fakeApSink struct {
	changes chan ApState
}

func newFakeApSink() *fakeApSink {
	return &fakeApSink{changes: make(chan ApState, 8)}
}

func (f *fakeApSink) OnApStateChanged(previous, current ApState, reason error, ifaceName string, mode role.Role) {
	f.changes <- current
}
