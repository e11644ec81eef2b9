package nativeif

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"github.com/sirupsen/logrus"
)

// Netlink message types this monitor listens for.
const (
	rtmNewlink = syscall.RTM_NEWLINK
	rtmDellink = syscall.RTM_DELLINK
)

// NetlinkMonitor turns RTM_NEWLINK/RTM_DELLINK kernel events into the
// {onUp, onDown, onDestroyed} callbacks the Native Interface Layer requires.
// It is the up/down/destroyed half of nativeif.Layer; DBusIWD and HostapdCtl
// cover the setup/teardown and SoftAp halves.
type NetlinkMonitor struct {
	conn   *netlink.Conn
	rtConn *rtnetlink.Conn
	log    *logrus.Entry

	mu          sync.Mutex
	callbacks   map[string]InterfaceCallback // ifaceName -> owner's callback
	lastUpState map[string]bool

	stopCh chan struct{}
}

// NewNetlinkMonitor dials both the raw netlink route socket and rtnetlink.
func NewNetlinkMonitor(log *logrus.Entry) (*NetlinkMonitor, error) {
	conn, err := netlink.Dial(syscall.NETLINK_ROUTE, &netlink.Config{Groups: 0x1})
	if err != nil {
		return nil, fmt.Errorf("nativeif: dial netlink: %w", err)
	}
	rtConn, err := rtnetlink.Dial(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nativeif: dial rtnetlink: %w", err)
	}
	return &NetlinkMonitor{
		conn:        conn,
		rtConn:      rtConn,
		log:         log,
		callbacks:   make(map[string]InterfaceCallback),
		lastUpState: make(map[string]bool),
		stopCh:      make(chan struct{}),
	}, nil
}

// Register binds an interface name to the callback its owning PMSM supplied
// at setup time. Replaces any previous binding — ownership transfers only
// via teardown-then-setup, never a handoff.
func (m *NetlinkMonitor) Register(ifaceName string, cb InterfaceCallback) {
	m.mu.Lock()
	m.callbacks[ifaceName] = cb
	m.mu.Unlock()
}

// Unregister removes a binding, typically right after TeardownInterface.
func (m *NetlinkMonitor) Unregister(ifaceName string) {
	m.mu.Lock()
	delete(m.callbacks, ifaceName)
	delete(m.lastUpState, ifaceName)
	m.mu.Unlock()
}

// Run drains netlink events until Close is called. Intended to run in its
// own goroutine.
func (m *NetlinkMonitor) Run() {
	for {
		select {
		case <-m.stopCh:
			return
		default:
			msgs, err := m.conn.Receive()
			if err != nil {
				m.log.WithError(err).Warn("netlink receive error")
				continue
			}
			for _, msg := range msgs {
				m.handle(msg)
			}
		}
	}
}

func (m *NetlinkMonitor) Close() {
	close(m.stopCh)
	m.conn.Close()
	m.rtConn.Close()
}

func (m *NetlinkMonitor) handle(msg netlink.Message) {
	switch msg.Header.Type {
	case rtmNewlink:
		m.handleLink(msg.Data, false)
	case rtmDellink:
		m.handleLink(msg.Data, true)
	}
}

func (m *NetlinkMonitor) handleLink(data []byte, removed bool) {
	var link rtnetlink.LinkMessage
	if err := link.UnmarshalBinary(data); err != nil {
		m.log.WithError(err).Warn("failed to parse link message")
		return
	}
	name := link.Attributes.Name
	if name == "" || name == "lo" {
		return
	}

	m.mu.Lock()
	cb, ok := m.callbacks[name]
	m.mu.Unlock()
	if !ok {
		return
	}

	if removed {
		m.log.WithField("iface", name).Info("interface destroyed")
		cb.OnDestroyed(name)
		m.Unregister(name)
		return
	}

	isUp := link.Attributes.OperationalState == rtnetlink.OperStateUp

	m.mu.Lock()
	last, seen := m.lastUpState[name]
	m.lastUpState[name] = isUp
	m.mu.Unlock()

	if seen && last == isUp {
		return // no change, avoid callback spam
	}

	if isUp {
		cb.OnUp(name)
	} else {
		cb.OnDown(name)
	}
}
