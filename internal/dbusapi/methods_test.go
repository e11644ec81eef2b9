package dbusapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardend/internal/role"
	"wardend/internal/softap"
)

type fakeDefaults struct {
	cfg softap.Config
	err error
}

func (f fakeDefaults) DefaultSoftApConfig(ssidSuffix string) (softap.Config, error) {
	return f.cfg, f.err
}

func TestParseApRole_Tethered(t *testing.T) {
	r, err := parseApRole("tethered")
	require.NoError(t, err)
	assert.Equal(t, role.SoftApTethered, r)
}

func TestParseApRole_LocalOnly(t *testing.T) {
	r, err := parseApRole("local_only")
	require.NoError(t, err)
	assert.Equal(t, role.SoftApLocalOnly, r)
}

func TestParseApRole_RejectsUnknownMode(t *testing.T) {
	_, err := parseApRole("bridged")
	assert.Error(t, err)
}

func TestStartSoftAp_RejectsUnknownMode(t *testing.T) {
	s := &Service{}
	dbusErr := s.StartSoftAp("bungled", "kitchen")
	require.NotNil(t, dbusErr)
	assert.Equal(t, Interface+".InvalidMode", dbusErr.Name)
}

func TestStartSoftAp_RejectsMissingDefaults(t *testing.T) {
	s := &Service{}
	dbusErr := s.StartSoftAp("tethered", "kitchen")
	require.NotNil(t, dbusErr)
	assert.Equal(t, Interface+".NoDefaults", dbusErr.Name)
}

func TestStartSoftAp_PropagatesDefaultsConfigError(t *testing.T) {
	s := &Service{}
	s.SetDefaults(fakeDefaults{err: assert.AnError})
	dbusErr := s.StartSoftAp("tethered", "kitchen")
	require.NotNil(t, dbusErr)
	assert.Equal(t, Interface+".InvalidConfig", dbusErr.Name)
}

func TestStopSoftAp_RejectsUnknownMode(t *testing.T) {
	s := &Service{}
	dbusErr := s.StopSoftAp("bungled")
	require.NotNil(t, dbusErr)
	assert.Equal(t, Interface+".InvalidMode", dbusErr.Name)
}
