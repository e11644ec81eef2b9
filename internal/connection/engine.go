// Package connection is the Client-PMSM's flat facade onto the external
// connection engine (network selection, DHCP, scoring, roaming, passpoint,
// DPP, TDLS, link-probe). This package defines the narrow contract the
// Client-PMSM forwards through, a no-op implementation for the Idle state
// (following AOSP's DefaultClientModeManager "wifi off, can't connect"
// stance), and IWDEngine, an implementation backed by iwd over D-Bus.
package connection

import "context"

// ScorerHandle is the cached {binder, scorer} pair the Warden re-installs on
// the current CLIENT_PRIMARY after every restart or role switch.
type ScorerHandle struct {
	Binder any
	Scorer any
}

// Engine is everything a Client-PMSM forwards per-connection operations to.
// NoOp and IWDEngine in this package implement it.
type Engine interface {
	Connect(ctx context.Context, ssid string) error
	Save(ctx context.Context, ssid string) error
	Disconnect(ctx context.Context) error
	Reassociate(ctx context.Context) error
	Roam(ctx context.Context, bssid string) error
	SetScorer(h ScorerHandle) error
	StartPasspointProvisioning(ctx context.Context, osuID string) error
	StartDPP(ctx context.Context, uri string) error
	EnableTDLS(ctx context.Context, peerMAC string, enable bool) error
	SendLinkProbe(ctx context.Context) error
}

// NoOp backs the facade while the owning PMSM is Idle. Save and Disconnect
// succeed silently; every other operation returns ErrNoConnection, matching
// DefaultClientModeManager's "can't connect" / silently-succeed split.
var NoOp Engine = noOp{}

type noOp struct{}

func (noOp) Connect(context.Context, string) error              { return ErrNoConnection }
func (noOp) Save(context.Context, string) error                 { return nil }
func (noOp) Disconnect(context.Context) error                   { return nil }
func (noOp) Reassociate(context.Context) error                  { return ErrNoConnection }
func (noOp) Roam(context.Context, string) error                 { return ErrNoConnection }
func (noOp) SetScorer(ScorerHandle) error                        { return ErrNoConnection }
func (noOp) StartPasspointProvisioning(context.Context, string) error { return ErrNoConnection }
func (noOp) StartDPP(context.Context, string) error              { return ErrNoConnection }
func (noOp) EnableTDLS(context.Context, string, bool) error       { return ErrNoConnection }
func (noOp) SendLinkProbe(context.Context) error                  { return ErrNoConnection }

// ErrNoConnection is returned by NoOp for operations that require a live
// connection engine.
var ErrNoConnection = errNoConnection{}

type errNoConnection struct{}

func (errNoConnection) Error() string { return "connection: no engine bound (client mode manager is idle)" }
