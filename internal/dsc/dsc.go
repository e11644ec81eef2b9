// Package dsc implements the Deferred-Stop Controller: it
// delays a client stop while a voice-over-Wi-Fi IMS session is registered
// over the Wi-Fi transport, up to a carrier-configured bound, then lets the
// stop continue.
package dsc

import (
	"time"

	"github.com/sirupsen/logrus"

	"wardend/internal/telephony"
)

// Result is delivered once the DSC decides it is safe to continue the
// pending stop.
type Result struct {
	WasDeferred bool
	TimedOut    bool
	Duration    time.Duration
	SubID       int
}

// Controller runs one deferral at a time; a Client-PMSM owns exactly one.
type Controller struct {
	observer               telephony.Observer
	extraDelayOnImsLost    time.Duration
	log                    *logrus.Entry
}

// New builds a Controller. extraDelayOnImsLost corresponds to the carrier
// config knob config_wifiDelayDisconnectOnImsLostMs.
func New(observer telephony.Observer, extraDelayOnImsLost time.Duration, log *logrus.Entry) *Controller {
	return &Controller{observer: observer, extraDelayOnImsLost: extraDelayOnImsLost, log: log}
}

// Defer computes the deferral delay and returns a channel that fires exactly
// once with the outcome. If there is no active IMS-over-Wi-Fi registration,
// or its configured delay is zero, the channel fires immediately with
// WasDeferred=false.
func (c *Controller) Defer() <-chan Result {
	out := make(chan Result, 1)

	reg, ok := c.observer.ActiveImsOverWifi()
	if !ok || reg.DelayMillis <= 0 {
		out <- Result{WasDeferred: false}
		return out
	}

	delay := time.Duration(reg.DelayMillis) * time.Millisecond
	c.log.WithFields(logrus.Fields{"sub_id": reg.SubID, "delay_ms": reg.DelayMillis}).Info("deferring client stop for active IMS-over-WiFi call")

	transportCh, stopTransport := c.observer.WatchTransportChange(reg.SubID)
	imsLostCh, stopImsLost := c.observer.WatchImsLost(reg.SubID)
	timer := time.NewTimer(delay)
	start := time.Now()

	go func() {
		defer stopTransport()
		defer stopImsLost()
		defer timer.Stop()

		timedOut := false
		select {
		case transport := <-transportCh:
			if transport == telephony.TransportWLAN {
				// Registration moved onto WLAN explicitly; nothing changed,
				// keep waiting for a non-WLAN move or timeout.
				for waiting := true; waiting; {
					select {
					case t2 := <-transportCh:
						waiting = t2 == telephony.TransportWLAN
					case <-imsLostCh:
						if c.extraDelayOnImsLost > 0 {
							time.Sleep(c.extraDelayOnImsLost)
						}
						waiting = false
					case <-timer.C:
						timedOut = true
						waiting = false
					}
				}
			}
		case <-imsLostCh:
			if c.extraDelayOnImsLost > 0 {
				time.Sleep(c.extraDelayOnImsLost)
			}
		case <-timer.C:
			timedOut = true
		}

		out <- Result{
			WasDeferred: true,
			TimedOut:    timedOut,
			Duration:    time.Since(start),
			SubID:       reg.SubID,
		}
	}()

	return out
}
