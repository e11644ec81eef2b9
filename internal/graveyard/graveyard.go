// Package graveyard implements the bounded FIFO of stopped PMSMs kept for
// post-mortem inspection, following AOSP's ActiveModeWarden.Graveyard inner
// class (mGraveyard.inter(...) / dump(fd, pw, args)).
package graveyard

import (
	"fmt"
	"io"
	"sync"
	"time"

	"wardend/internal/role"
)

// PerFamilyCapacity is the number of retained PMSMs per family (client,
// softap).
const PerFamilyCapacity = 3

// Entry is a snapshot of a PMSM at the moment it reported terminal state.
type Entry struct {
	ID        int
	Role      role.Role
	Interface string
	StoppedAt time.Time
	Reason    string
}

// Family classifies an Entry for the two independent FIFOs.
type Family int

const (
	Client Family = iota
	SoftAp
)

// Graveyard holds the most recent PerFamilyCapacity entries per family. It
// is purely a debug-dump facility; control logic never consults it.
type Graveyard struct {
	mu     sync.Mutex
	client []Entry
	softap []Entry
}

// New returns an empty Graveyard.
func New() *Graveyard {
	return &Graveyard{}
}

// Inter buries an entry, evicting the oldest of its family if full.
func (g *Graveyard) Inter(fam Family, e Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.listFor(fam)
	*list = append(*list, e)
	if len(*list) > PerFamilyCapacity {
		*list = (*list)[len(*list)-PerFamilyCapacity:]
	}
}

func (g *Graveyard) listFor(fam Family) *[]Entry {
	if fam == Client {
		return &g.client
	}
	return &g.softap
}

// Snapshot returns a copy of the entries for a family, oldest first.
func (g *Graveyard) Snapshot(fam Family) []Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	src := *g.listFor(fam)
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Dump renders both families for the `wardend diag` CLI subcommand, mirroring
// Graveyard.dump(fd, pw, args) in original_source/ActiveModeWarden.java.
func (g *Graveyard) Dump(w io.Writer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fmt.Fprintln(w, "Client PMSM graveyard:")
	for _, e := range g.client {
		fmt.Fprintf(w, "  id=%d role=%s iface=%s stopped=%s reason=%s\n", e.ID, e.Role, e.Interface, e.StoppedAt.Format(time.RFC3339), e.Reason)
	}
	fmt.Fprintln(w, "SoftAp PMSM graveyard:")
	for _, e := range g.softap {
		fmt.Fprintf(w, "  id=%d role=%s iface=%s stopped=%s reason=%s\n", e.ID, e.Role, e.Interface, e.StoppedAt.Format(time.RFC3339), e.Reason)
	}
}
