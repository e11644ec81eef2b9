package graveyard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardend/internal/role"
)

func TestGraveyard_InterEvictsOldestPerFamily(t *testing.T) {
	g := New()
	for i := 0; i < PerFamilyCapacity+2; i++ {
		g.Inter(Client, Entry{ID: i, Role: role.ClientScanOnly, StoppedAt: time.Now()})
	}

	got := g.Snapshot(Client)
	require.Len(t, got, PerFamilyCapacity)
	// Oldest two (id 0, 1) evicted; remaining are the most recent, oldest first.
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	assert.Equal(t, 4, got[2].ID)
}

func TestGraveyard_FamiliesAreIndependent(t *testing.T) {
	g := New()
	g.Inter(Client, Entry{ID: 1, Role: role.ClientPrimary})
	g.Inter(SoftAp, Entry{ID: 2, Role: role.SoftApTethered})

	assert.Len(t, g.Snapshot(Client), 1)
	assert.Len(t, g.Snapshot(SoftAp), 1)
	assert.Equal(t, 1, g.Snapshot(Client)[0].ID)
	assert.Equal(t, 2, g.Snapshot(SoftAp)[0].ID)
}

func TestGraveyard_DumpRendersBothFamilies(t *testing.T) {
	g := New()
	g.Inter(Client, Entry{ID: 7, Role: role.ClientPrimary, Interface: "wlan0", StoppedAt: time.Now(), Reason: "STOP"})
	g.Inter(SoftAp, Entry{ID: 8, Role: role.SoftApLocalOnly, Interface: "wlan1", StoppedAt: time.Now(), Reason: "ABORT"})

	var b strings.Builder
	g.Dump(&b)

	out := b.String()
	assert.Contains(t, out, "Client PMSM graveyard:")
	assert.Contains(t, out, "SoftAp PMSM graveyard:")
	assert.Contains(t, out, "id=7")
	assert.Contains(t, out, "id=8")
	assert.Contains(t, out, "reason=STOP")
}
