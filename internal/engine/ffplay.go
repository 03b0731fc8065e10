package engine

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// ffplayEngine is the fallback backend when neither VLC nor mpv is
// available. ffplay has no IPC of its own, so this backend only supports
// starting playback from a position: Seek restarts the process at the new
// offset, and Speed/Volume only take effect on the next restart, matching
// the capability floor documented for this backend.
//
// Unlike vlcSubprocessEngine and mpvEngine, a single run of ffplay here is
// a one-shot process that exits on its own at end of file (-autoexit); it
// is run directly with exec.Cmd rather than through supervisor, whose
// crash-restart logic is meant for long-lived daemons and would otherwise
// relaunch ffplay from the beginning every time an episode finishes.
type ffplayEngine struct {
	*stateBase
	currentURL string
	volume     int
	speed      float64

	mu      sync.Mutex
	cmd     *exec.Cmd
	waitErr chan struct{}
}

func newFFplayEngine() *ffplayEngine {
	caps := models.PlayerCapabilities(0).With(
		models.CapPlay, models.CapStop, models.CapSeek,
		models.CapVolume, models.CapSpeed, models.CapNetwork, models.CapLocal,
	)
	return &ffplayEngine{stateBase: newStateBase(caps), volume: 100, speed: 1.0}
}

func (e *ffplayEngine) Name() string { return string(KindFFplay) }

func (e *ffplayEngine) Play(ctx context.Context, mediaURL string, startMs int64) error {
	e.killCurrent()
	e.currentURL = mediaURL
	startSecs := fmt.Sprintf("%.3f", float64(startMs)/1000)

	cmd := exec.Command(findBinary("ffplay"),
		"-nodisp", "-autoexit", "-loglevel", "error",
		"-ss", startSecs,
		"-af", fmt.Sprintf("volume=%.3f,atempo=%.3f", float64(e.volume)/100, e.speed),
		mediaURL,
	)
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffplay: start: %w", err)
	}

	e.mu.Lock()
	e.cmd = cmd
	done := make(chan struct{})
	e.waitErr = done
	e.mu.Unlock()

	e.setState(func(st *models.PlayerState) {
		st.IsPlaying = true
		st.Position = time.Duration(startMs) * time.Millisecond
	})

	go e.watch(cmd, done)
	return nil
}

// watch waits for the one-shot process to exit naturally (end of file) and
// marks playback stopped — it never restarts the process itself.
func (e *ffplayEngine) watch(cmd *exec.Cmd, done chan struct{}) {
	_ = cmd.Wait()
	close(done)

	e.mu.Lock()
	isCurrent := e.cmd == cmd
	if isCurrent {
		e.cmd = nil
	}
	e.mu.Unlock()

	if isCurrent {
		e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	}
}

func (e *ffplayEngine) killCurrent() {
	e.mu.Lock()
	cmd := e.cmd
	done := e.waitErr
	e.cmd = nil
	e.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	killProcessGroup(cmd.Process.Pid)
	if done != nil {
		<-done
	}
}

func (e *ffplayEngine) Stop(ctx context.Context) error {
	e.killCurrent()
	e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	return nil
}

// TogglePause isn't supported by ffplay without its (keyboard-only)
// interactive controls; podliner never relies on this capability for
// ffplay since CapPause is absent from its capability set, and the call is
// a no-op here like every other unsupported operation.
func (e *ffplayEngine) TogglePause(ctx context.Context) error {
	return nil
}

// SeekTo restarts ffplay at the requested offset — the only seek mechanism
// available without an IPC channel into the running process.
func (e *ffplayEngine) SeekTo(ctx context.Context, at time.Duration) error {
	if e.currentURL == "" {
		return fmt.Errorf("ffplay: nothing playing")
	}
	return e.Play(ctx, e.currentURL, int64(at/time.Millisecond))
}

func (e *ffplayEngine) SeekRelative(ctx context.Context, delta time.Duration) error {
	return e.SeekTo(ctx, e.State().Position+delta)
}

// SetVolume takes effect on the next Play/SeekTo restart only — ffplay has
// no running-process volume control, matching its "start-only" floor.
func (e *ffplayEngine) SetVolume(ctx context.Context, volume0To100 int) error {
	e.volume = models.ClampVolume(volume0To100)
	e.setState(func(st *models.PlayerState) { st.Volume = e.volume })
	return nil
}

// SetSpeed takes effect on the next Play/SeekTo restart only, same as SetVolume.
func (e *ffplayEngine) SetSpeed(ctx context.Context, speed float64) error {
	e.speed = models.ClampSpeed(speed, models.EngineMinSpeed, models.EngineMaxSpeed)
	e.setState(func(st *models.PlayerState) { st.Speed = e.speed })
	return nil
}

func (e *ffplayEngine) Close() error {
	e.killCurrent()
	return nil
}
