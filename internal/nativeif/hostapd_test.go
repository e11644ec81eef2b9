package nativeif

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"wardend/internal/softap"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(logrus.StandardLogger().Out)
	return logrus.NewEntry(l)
}

func TestHostapdCtl_StartSoftAp_RejectsInvalidConfigWithoutRunningHostapdCli(t *testing.T) {
	h := NewHostapdCtl(testLogger(), softap.Capability(0))
	ok := h.StartSoftAp("wlan0", softap.Config{}, true, nil)
	assert.False(t, ok)
}

func TestHostapdCtl_Capabilities_ReflectsConstructorArgument(t *testing.T) {
	caps := softap.CapMACRandomization | softap.CapACS
	h := NewHostapdCtl(testLogger(), caps)
	assert.Equal(t, caps, h.Capabilities())
}

func TestHostapdCtl_IsApSetMacAddressSupported_FollowsCapability(t *testing.T) {
	withCap := NewHostapdCtl(testLogger(), softap.CapMACRandomization)
	withoutCap := NewHostapdCtl(testLogger(), softap.Capability(0))

	assert.True(t, withCap.IsApSetMacAddressSupported("wlan0"))
	assert.False(t, withoutCap.IsApSetMacAddressSupported("wlan0"))
}
