package engine

import (
	"context"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// Swappable owns the current Engine exclusively and exposes the same
// Engine contract, so callers hold one stable handle regardless of how
// many times the backing engine is replaced.
//
// Every operation takes the read side of mu and SwapTo takes the write
// side: any operation already in flight holds the read lock until it
// returns, so SwapTo blocks until it completes before installing the next
// engine. A SeekTo that started before a swap is requested therefore always
// finishes against the old engine — it is never split across two engines,
// and the swap is never torn by a seek that starts after SwapTo has already
// taken the write lock (it simply waits).
type Swappable struct {
	mu      sync.RWMutex
	current Engine
}

// NewSwappable wraps an already-selected initial engine.
func NewSwappable(initial Engine) *Swappable {
	return &Swappable{current: initial}
}

func (s *Swappable) Play(ctx context.Context, url string, startMs int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Play(ctx, url, startMs)
}

func (s *Swappable) Stop(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Stop(ctx)
}

func (s *Swappable) TogglePause(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TogglePause(ctx)
}

func (s *Swappable) SeekTo(ctx context.Context, at time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.SeekTo(ctx, at)
}

func (s *Swappable) SeekRelative(ctx context.Context, delta time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.SeekRelative(ctx, delta)
}

func (s *Swappable) SetVolume(ctx context.Context, volume0To100 int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.SetVolume(ctx, volume0To100)
}

func (s *Swappable) SetSpeed(ctx context.Context, speed float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.SetSpeed(ctx, speed)
}

func (s *Swappable) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Name()
}

func (s *Swappable) Capabilities() models.PlayerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Capabilities()
}

func (s *Swappable) State() models.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.State()
}

func (s *Swappable) Subscribe(fn func(models.PlayerState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.current.Subscribe(fn)
}

func (s *Swappable) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Close()
}

// SwapTo atomically replaces the current engine: it waits for any in-flight
// operation to finish (see mu above), stops and closes the old engine, then
// installs next with the old engine's persisted Volume and Speed re-applied
// so Swappable.State() reads consistently the instant SwapTo returns. onOld,
// if non-nil, receives the outgoing engine's final state before it closes.
func (s *Swappable) SwapTo(ctx context.Context, next Engine, onOld func(models.PlayerState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current
	oldState := old.State()
	if onOld != nil {
		onOld(oldState)
	}
	_ = old.Stop(ctx)
	_ = old.Close()

	if next.Capabilities().Has(models.CapVolume) {
		_ = next.SetVolume(ctx, oldState.Volume)
	}
	if next.Capabilities().Has(models.CapSpeed) {
		_ = next.SetSpeed(ctx, oldState.Speed)
	}

	s.current = next
	return nil
}
