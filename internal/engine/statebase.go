package engine

import (
	"sync"

	"github.com/podliner/podliner/internal/models"
)

// stateBase is an embeddable helper that owns a PlayerState and its
// subscriber list. Backends call setState whenever anything observable
// changes; stateBase handles the thread-safety and crash-proof fan-out.
type stateBase struct {
	mu   sync.RWMutex
	st   models.PlayerState
	subs []func(models.PlayerState)
}

func newStateBase(caps models.PlayerCapabilities) *stateBase {
	return &stateBase{
		st: models.PlayerState{Capabilities: caps, Volume: 100, Speed: 1.0},
	}
}

func (b *stateBase) State() models.PlayerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.st
}

func (b *stateBase) Subscribe(fn func(models.PlayerState)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// setState replaces the state and notifies subscribers outside the lock so
// a subscriber that calls back into the engine cannot deadlock against it.
// A panicking subscriber never reaches the others or the emitter.
func (b *stateBase) setState(mutate func(*models.PlayerState)) {
	b.mu.Lock()
	mutate(&b.st)
	snapshot := b.st
	subs := append([]func(models.PlayerState){}, b.subs...)
	b.mu.Unlock()

	for _, fn := range subs {
		notifyOne(fn, snapshot)
	}
}

func notifyOne(fn func(models.PlayerState), st models.PlayerState) {
	defer func() { _ = recover() }()
	fn(st)
}
