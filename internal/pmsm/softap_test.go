package pmsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardend/internal/role"
	"wardend/internal/softap"
)

func waitApState(t *testing.T, ch chan ApState) ApState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ap state broadcast")
		return ApStateDisabled
	}
}

func validSoftApConfig() softap.Config {
	return softap.Config{
		Band:     softap.Band2GHz,
		Security: softap.SecurityOpen,
		SSID:     "wardend-test",
	}
}

func TestSoftApPMSM_StartSucceedsAndBroadcastsEnabled(t *testing.T) {
	layer := newFakeLayer()
	listener := newFakeListener()
	apSink := newFakeApSink()
	s := NewSoftApPMSM(1, layer, listener, apSink, NoOpMetrics, testLogger())
	defer s.Close()

	s.Start(role.SoftApTethered, validSoftApConfig(), "ws-1", true)

	assert.Equal(t, role.SoftApTethered, waitRole(t, listener.started))
	assert.Equal(t, ApStateEnabling, waitApState(t, apSink.changes))
	assert.Equal(t, ApStateEnabled, waitApState(t, apSink.changes))
	assert.Equal(t, "wlan0", s.IfaceName())
}

func TestSoftApPMSM_RejectsInvalidConfig(t *testing.T) {
	layer := newFakeLayer()
	listener := newFakeListener()
	s := NewSoftApPMSM(2, layer, listener, nil, NoOpMetrics, testLogger())
	defer s.Close()

	s.Start(role.SoftApLocalOnly, softap.Config{}, "ws-2", false)

	err := waitErr(t, listener.startFailure)
	werr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ConfigInvalid, werr.Kind)
}

func TestSoftApPMSM_RejectsSAEWithoutCapability(t *testing.T) {
	layer := newFakeLayer() // caps defaults to zero value, no CapWPA3SAE
	listener := newFakeListener()
	s := NewSoftApPMSM(3, layer, listener, nil, NoOpMetrics, testLogger())
	defer s.Close()

	cfg := validSoftApConfig()
	cfg.Security = softap.SecurityWPA3SAE
	s.Start(role.SoftApTethered, cfg, "ws-3", true)

	err := waitErr(t, listener.startFailure)
	werr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnsupportedConfiguration, werr.Kind)
}

func TestSoftApPMSM_5GHzRequiresCountryCode(t *testing.T) {
	layer := newFakeLayer()
	listener := newFakeListener()
	s := NewSoftApPMSM(4, layer, listener, nil, NoOpMetrics, testLogger())
	defer s.Close()

	cfg := validSoftApConfig()
	cfg.Band = softap.Band5GHz
	s.Start(role.SoftApTethered, cfg, "ws-4", true)

	err := waitErr(t, listener.startFailure)
	werr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, NoChannel, werr.Kind)
}

func TestSoftApPMSM_StopTearsDownAndReportsStopped(t *testing.T) {
	layer := newFakeLayer()
	listener := newFakeListener()
	apSink := newFakeApSink()
	s := NewSoftApPMSM(5, layer, listener, apSink, NoOpMetrics, testLogger())
	defer s.Close()

	s.Start(role.SoftApLocalOnly, validSoftApConfig(), "ws-5", false)
	waitRole(t, listener.started)
	waitApState(t, apSink.changes) // ENABLING
	waitApState(t, apSink.changes) // ENABLED

	s.Stop()

	select {
	case <-listener.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop callback")
	}
	assert.Contains(t, layer.torndown, "wlan0")
	assert.Equal(t, "", s.IfaceName())
}

func TestSoftApPMSM_AdmissionPolicyBlocksOverCapacity(t *testing.T) {
	layer := newFakeLayer()
	listener := newFakeListener()
	s := NewSoftApPMSM(6, layer, listener, nil, NoOpMetrics, testLogger())
	defer s.Close()

	cfg := validSoftApConfig()
	cfg.MaxClients = 1
	s.Start(role.SoftApLocalOnly, cfg, "ws-6", false)
	waitRole(t, listener.started)

	s.OnConnectedClientsChanged([]string{"aa:bb:cc:dd:ee:01"})
	s.OnClientAssociating("aa:bb:cc:dd:ee:02")

	deadline := time.After(2 * time.Second)
	for {
		layer.mu.Lock()
		n := len(layer.forceDisconnect)
		layer.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for admission policy to force-disconnect the blocked client")
		case <-time.After(10 * time.Millisecond):
		}
	}
	assert.Contains(t, layer.forceDisconnect, "aa:bb:cc:dd:ee:02")
}

func TestSoftApPMSM_HostapdFailureAbortsAndReportsStopped(t *testing.T) {
	layer := newFakeLayer()
	listener := newRecordingListener()
	s := NewSoftApPMSM(7, layer, listener, nil, NoOpMetrics, testLogger())
	defer s.Close()

	s.Start(role.SoftApTethered, validSoftApConfig(), "ws-7", true)
	waitRole(t, listener.started)

	s.OnFailure()

	select {
	case <-listener.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop callback")
	}
	select {
	case kind := <-listener.midLifeFailure:
		assert.Equal(t, DaemonDied, kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mid-life failure callback")
	}
}

func TestDeriveOWETransitionSSID_Deterministic(t *testing.T) {
	a := DeriveOWETransitionSSID("HomeNetwork")
	b := DeriveOWETransitionSSID("HomeNetwork")
	c := DeriveOWETransitionSSID("OtherNetwork")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^OWE_[0-9A-F]{8}$`, a)
}
