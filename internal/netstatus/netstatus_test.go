package netstatus

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func withFakeDial(t *testing.T, online bool) {
	t.Helper()
	orig := dialFunc
	dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
		if online {
			c1, c2 := net.Pipe()
			c2.Close()
			return c1, nil
		}
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { dialFunc = orig })
}

func TestPollerReflectsReachability(t *testing.T) {
	withFakeDial(t, true)
	p := New(nil)
	p.check()
	if !p.Online() {
		t.Error("expected Online() true when the probe succeeds")
	}
}

func TestPollerOfflineOnUnreachable(t *testing.T) {
	withFakeDial(t, false)
	p := New(nil)
	p.check()
	if p.Online() {
		t.Error("expected Online() false when the probe fails")
	}
}

func TestPollerManualOfflineOverridesReachability(t *testing.T) {
	withFakeDial(t, true)
	p := New(nil)
	p.check()
	p.SetManualOffline(true)
	if p.Online() {
		t.Error("expected manual offline override to force Online() false")
	}
	p.SetManualOffline(false)
	if !p.Online() {
		t.Error("expected clearing the override to restore the last probe result")
	}
}

func TestPollerFiresOnChangeOnlyOnTransition(t *testing.T) {
	withFakeDial(t, true)
	var fires int
	p := New(func(online bool) { fires++ })
	p.check()
	p.check()
	if fires != 1 {
		t.Errorf("expected exactly 1 onChange fire for a steady state, got %d", fires)
	}

	withFakeDial(t, false)
	p.check()
	if fires != 2 {
		t.Errorf("expected onChange to fire again on transition to offline, got %d", fires)
	}
}

func TestPollerRunRespectsContextCancellation(t *testing.T) {
	withFakeDial(t, true)
	p := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
