// Package netstatus polls outbound connectivity and tracks a manual offline
// override, giving the gPodder Sync Engine a single "are we online" signal
// to gate network operations on; the Feed Service does not consult it.
package netstatus

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// pollInterval is how often connectivity is re-checked in the background.
const pollInterval = 30 * time.Second

// dialTimeout bounds a single connectivity probe.
const dialTimeout = 3 * time.Second

// probeTarget is a well-known, stable host used only to test reachability —
// never contacted for any other purpose.
const probeTarget = "1.1.1.1:53"

// dialFunc is a variable so tests can inject a fake dialer instead of
// touching the network.
var dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// Poller tracks connectivity. Online() reflects both the periodic
// reachability probe and any manual override set via SetManualOffline —
// the two are ANDed together: a manual offline override always wins
// regardless of what the probe reports.
type Poller struct {
	mu            sync.Mutex
	reachable     bool
	manualOffline bool
	onChange      func(online bool)
	lastPublished bool
	everPublished bool
}

// New builds a Poller. onChange, if non-nil, fires whenever the effective
// online state flips.
func New(onChange func(online bool)) *Poller {
	return &Poller{onChange: onChange}
}

// Online reports the current effective connectivity: reachable AND not
// manually forced offline.
func (p *Poller) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reachable && !p.manualOffline
}

// SetManualOffline forces Online() to false regardless of reachability —
// the :net off command's effect. Passing false clears the override and
// lets the next probe result (or the last one already observed) govern.
func (p *Poller) SetManualOffline(offline bool) {
	p.mu.Lock()
	p.manualOffline = offline
	p.mu.Unlock()
	p.publish()
}

// Run probes connectivity immediately, then on pollInterval, until ctx is
// canceled.
func (p *Poller) Run(ctx context.Context) {
	p.check()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *Poller) check() {
	conn, err := dialFunc("tcp", probeTarget, dialTimeout)
	if conn != nil {
		conn.Close()
	}
	reachable := err == nil

	p.mu.Lock()
	p.reachable = reachable
	p.mu.Unlock()

	slog.Debug("netstatus: connectivity probe", "reachable", reachable)
	p.publish()
}

func (p *Poller) publish() {
	p.mu.Lock()
	online := p.reachable && !p.manualOffline
	changed := !p.everPublished || online != p.lastPublished
	p.everPublished = true
	p.lastPublished = online
	fn := p.onChange
	p.mu.Unlock()

	if changed && fn != nil {
		fn(online)
	}
}
