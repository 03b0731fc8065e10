package engine

import (
	"context"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// mockEngine is a fake backend for the --mock-engine dev/test path, in the
// spirit of hardware.Mock: an in-memory stand-in with every capability,
// configurable failure injection, and no external process or I/O. It
// advances Position on its own ticker so the playback coordinator has
// something real to observe during development without VLC or mpv installed.
type mockEngine struct {
	*stateBase

	mu         sync.Mutex
	failNext   bool
	tickStop   context.CancelFunc
	tickWg     sync.WaitGroup
	assumedLen time.Duration
}

// NewMockEngine constructs the --mock-engine backend directly, bypassing
// Select entirely — it is never chosen by auto-detection.
func NewMockEngine() Engine { return newMockEngine() }

func newMockEngine() *mockEngine {
	caps := models.PlayerCapabilities(0).With(
		models.CapPlay, models.CapPause, models.CapStop, models.CapSeek,
		models.CapVolume, models.CapSpeed, models.CapNetwork, models.CapLocal,
	)
	return &mockEngine{stateBase: newStateBase(caps), assumedLen: 30 * time.Minute}
}

// SetFailNext makes the next operation return an error, for exercising
// error paths in tests without a real engine.
func (e *mockEngine) SetFailNext(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = fail
}

func (e *mockEngine) consumeFailure() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failNext {
		e.failNext = false
		return true
	}
	return false
}

func (e *mockEngine) Name() string { return string(KindMock) }

func (e *mockEngine) Play(ctx context.Context, mediaURL string, startMs int64) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	e.stopTicking()
	length := e.assumedLen
	e.setState(func(st *models.PlayerState) {
		st.IsPlaying = true
		st.Position = time.Duration(startMs) * time.Millisecond
		st.Length = &length
	})
	tickCtx, cancel := context.WithCancel(context.Background())
	e.tickStop = cancel
	e.tickWg.Add(1)
	go e.tickLoop(tickCtx)
	return nil
}

func (e *mockEngine) Stop(ctx context.Context) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	e.stopTicking()
	e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	return nil
}

func (e *mockEngine) TogglePause(ctx context.Context) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	e.setState(func(st *models.PlayerState) { st.IsPlaying = !st.IsPlaying })
	return nil
}

func (e *mockEngine) SeekTo(ctx context.Context, at time.Duration) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	e.setState(func(st *models.PlayerState) { st.Position = at })
	return nil
}

func (e *mockEngine) SeekRelative(ctx context.Context, delta time.Duration) error {
	return e.SeekTo(ctx, e.State().Position+delta)
}

func (e *mockEngine) SetVolume(ctx context.Context, volume0To100 int) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	v := models.ClampVolume(volume0To100)
	e.setState(func(st *models.PlayerState) { st.Volume = v })
	return nil
}

func (e *mockEngine) SetSpeed(ctx context.Context, speed float64) error {
	if e.consumeFailure() {
		return errMockInjected
	}
	s := models.ClampSpeed(speed, models.EngineMinSpeed, models.EngineMaxSpeed)
	e.setState(func(st *models.PlayerState) { st.Speed = s })
	return nil
}

func (e *mockEngine) Close() error {
	e.stopTicking()
	return nil
}

func (e *mockEngine) stopTicking() {
	if e.tickStop != nil {
		e.tickStop()
		e.tickWg.Wait()
		e.tickStop = nil
	}
}

func (e *mockEngine) tickLoop(ctx context.Context) {
	defer e.tickWg.Done()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			e.setState(func(st *models.PlayerState) {
				if !st.IsPlaying {
					return
				}
				st.Position += time.Duration(float64(elapsed) * st.Speed)
				if st.Length != nil && st.Position > *st.Length {
					st.Position = *st.Length
					st.IsPlaying = false
				}
			})
		}
	}
}
