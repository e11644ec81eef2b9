package warden

import (
	"github.com/sirupsen/logrus"

	"wardend/internal/pmsm"
	"wardend/internal/role"
)

// WifiStateListener receives the sticky Wi-Fi state broadcast.
type WifiStateListener interface {
	OnWifiStateChanged(previous, current pmsm.WifiState)
}

// ApStateListener receives the sticky Wi-Fi AP state broadcast.
type ApStateListener interface {
	OnApStateChanged(previous, current pmsm.ApState, reason error, ifaceName string, mode role.Role)
}

// broadcaster fans a sticky broadcast out to every registered listener.
type broadcaster struct {
	log       *logrus.Entry
	wifi      []WifiStateListener
	ap        []ApStateListener
	lastWifi  pmsm.WifiState
	lastAp    pmsm.ApState
}

func newBroadcaster(log *logrus.Entry) *broadcaster {
	return &broadcaster{log: log, lastWifi: pmsm.StateDisabled, lastAp: pmsm.ApStateDisabled}
}

func (b *broadcaster) AddWifiListener(l WifiStateListener) { b.wifi = append(b.wifi, l) }
func (b *broadcaster) AddApListener(l ApStateListener)      { b.ap = append(b.ap, l) }

func (b *broadcaster) emitWifi(prev, cur pmsm.WifiState) {
	b.lastWifi = cur
	b.log.WithFields(logrus.Fields{"previous": prev, "current": cur}).Info("wifi state broadcast")
	for _, l := range b.wifi {
		l.OnWifiStateChanged(prev, cur)
	}
}

func (b *broadcaster) emitAp(prev, cur pmsm.ApState, reason error, ifaceName string, mode role.Role) {
	b.lastAp = cur
	entry := b.log.WithFields(logrus.Fields{"previous": prev, "current": cur, "iface": ifaceName, "mode": mode})
	if reason != nil {
		entry = entry.WithField("reason", reason.Error())
	}
	entry.Info("wifi ap state broadcast")
	for _, l := range b.ap {
		l.OnApStateChanged(prev, cur, reason, ifaceName, mode)
	}
}
