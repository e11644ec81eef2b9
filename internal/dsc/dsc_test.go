package dsc

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardend/internal/telephony"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("test", true)
}

type fakeObserver struct {
	reg          telephony.ActiveRegistration
	hasReg       bool
	transportCh  chan telephony.Transport
	imsLostCh    chan struct{}
	watchStopped chan struct{}
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		transportCh:  make(chan telephony.Transport, 1),
		imsLostCh:    make(chan struct{}, 1),
		watchStopped: make(chan struct{}, 2),
	}
}

func (f *fakeObserver) ActiveImsOverWifi() (telephony.ActiveRegistration, bool) {
	return f.reg, f.hasReg
}

func (f *fakeObserver) WatchTransportChange(subID int) (<-chan telephony.Transport, func()) {
	return f.transportCh, func() { f.watchStopped <- struct{}{} }
}

func (f *fakeObserver) WatchImsLost(subID int) (<-chan struct{}, func()) {
	return f.imsLostCh, func() { f.watchStopped <- struct{}{} }
}

func TestController_Defer_NoActiveRegistration_ContinuesImmediately(t *testing.T) {
	c := New(telephony.None, 0, testLogger())

	select {
	case res := <-c.Defer():
		assert.False(t, res.WasDeferred)
		assert.False(t, res.TimedOut)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for immediate result")
	}
}

func TestController_Defer_ZeroDelay_ContinuesImmediately(t *testing.T) {
	obs := newFakeObserver()
	obs.hasReg = true
	obs.reg = telephony.ActiveRegistration{SubID: 1, DelayMillis: 0}
	c := New(obs, 0, testLogger())

	select {
	case res := <-c.Defer():
		assert.False(t, res.WasDeferred)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for immediate result")
	}
}

func TestController_Defer_ImsLostEndsDeferralBeforeTimeout(t *testing.T) {
	obs := newFakeObserver()
	obs.hasReg = true
	obs.reg = telephony.ActiveRegistration{SubID: 2, DelayMillis: 5000}
	c := New(obs, 0, testLogger())

	resultCh := c.Defer()
	obs.imsLostCh <- struct{}{}

	select {
	case res := <-resultCh:
		assert.True(t, res.WasDeferred)
		assert.False(t, res.TimedOut)
		assert.Less(t, res.Duration, 5*time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deferred result")
	}
}

func TestController_Defer_TimesOutWhenNothingResolvesIt(t *testing.T) {
	obs := newFakeObserver()
	obs.hasReg = true
	obs.reg = telephony.ActiveRegistration{SubID: 3, DelayMillis: 50}
	c := New(obs, 0, testLogger())

	resultCh := c.Defer()

	select {
	case res := <-resultCh:
		require.True(t, res.WasDeferred)
		assert.True(t, res.TimedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timeout result")
	}
}

func TestController_Defer_TransportMoveOffWlanEndsDeferral(t *testing.T) {
	obs := newFakeObserver()
	obs.hasReg = true
	obs.reg = telephony.ActiveRegistration{SubID: 4, DelayMillis: 5000}
	c := New(obs, 0, testLogger())

	resultCh := c.Defer()
	obs.transportCh <- telephony.TransportCellular

	select {
	case res := <-resultCh:
		assert.True(t, res.WasDeferred)
		assert.False(t, res.TimedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deferred result")
	}
}
