// Package traffic samples per-interface RX/TX byte counters from sysfs and
// publishes the deltas to internal/metrics. The interface set to sample
// comes from the Warden's live PMSMs rather than a single tracked
// connection.
package traffic

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"wardend/internal/metrics"
)

const updateInterval = 1 * time.Second

// sysClassNet is a var rather than a const so tests can point it at a
// temporary directory instead of the real sysfs tree.
var sysClassNet = "/sys/class/net"

// InterfaceSource supplies the set of interface names currently worth
// sampling. warden.Warden.ActiveInterfaces satisfies this.
type InterfaceSource func() []string

// Monitor polls sysfs traffic counters for every interface InterfaceSource
// reports and pushes the deltas into internal/metrics.
type Monitor struct {
	ifaces  InterfaceSource
	stopCh  chan struct{}
	running atomic.Bool

	last map[string][2]uint64 // iface -> [rx, tx] from the previous sample
}

// NewMonitor builds a traffic monitor sourcing its interface set from ifaces.
func NewMonitor(ifaces InterfaceSource) *Monitor {
	return &Monitor{
		ifaces: ifaces,
		stopCh: make(chan struct{}),
		last:   make(map[string][2]uint64),
	}
}

// Run starts the sampling loop. It blocks until Stop is called.
func (m *Monitor) Run() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}

	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

// Stop ends the sampling loop.
func (m *Monitor) Stop() {
	if m.running.CompareAndSwap(true, false) {
		close(m.stopCh)
	}
}

func (m *Monitor) sample() {
	seen := make(map[string]bool)
	for _, iface := range m.ifaces() {
		if iface == "" || seen[iface] {
			continue
		}
		seen[iface] = true
		m.sampleOne(iface)
	}

	// Drop interfaces that are no longer active so a later reappearance
	// doesn't report a bogus delta against stale counters.
	for iface := range m.last {
		if !seen[iface] {
			delete(m.last, iface)
		}
	}
}

func (m *Monitor) sampleOne(iface string) {
	rx, tx := m.readStats(iface)
	if rx == 0 && tx == 0 {
		return
	}

	prev, had := m.last[iface]
	m.last[iface] = [2]uint64{rx, tx}
	if !had {
		return
	}

	var deltaRx, deltaTx uint64
	if rx >= prev[0] {
		deltaRx = rx - prev[0]
	}
	if tx >= prev[1] {
		deltaTx = tx - prev[1]
	}

	metrics.RecordTraffic(iface, deltaRx, deltaTx)
}

// readStats reads RX/TX bytes from sysfs.
func (m *Monitor) readStats(iface string) (rx, tx uint64) {
	rxPath := filepath.Join(sysClassNet, iface, "statistics/rx_bytes")
	txPath := filepath.Join(sysClassNet, iface, "statistics/tx_bytes")

	rx = readUint64File(rxPath)
	tx = readUint64File(txPath)
	return
}

// readUint64File reads a uint64 from a file.
func readUint64File(path string) uint64 {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if scanner.Scan() {
		val, err := strconv.ParseUint(strings.TrimSpace(scanner.Text()), 10, 64)
		if err != nil {
			return 0
		}
		return val
	}
	return 0
}
