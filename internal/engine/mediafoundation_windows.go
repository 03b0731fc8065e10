//go:build windows

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// mediaFoundationEngine is the Windows-only MediaFoundation backend slot.
// No helper process is bundled with it, so Play always returns an error and
// no audio is produced; the other operations only update the in-memory
// PlayerState. It never reports CapSpeed — MediaFoundation's SourceReader-based playback
// rate control is unreliable across the codec set podcasts actually use,
// so podliner holds it at 1.0x rather than advertise a capability it can't
// honour consistently.
type mediaFoundationEngine struct {
	*stateBase
	sup        *supervisor
	currentURL string
}

func newMediaFoundationEngine() (Engine, error) {
	caps := models.PlayerCapabilities(0).With(
		models.CapPlay, models.CapPause, models.CapStop, models.CapSeek,
		models.CapVolume, models.CapNetwork, models.CapLocal,
	)
	return &mediaFoundationEngine{stateBase: newStateBase(caps)}, nil
}

func (e *mediaFoundationEngine) Name() string { return string(KindMediaFoundation) }

func (e *mediaFoundationEngine) Play(ctx context.Context, mediaURL string, startMs int64) error {
	if e.sup != nil {
		_ = e.sup.Stop()
	}
	e.currentURL = mediaURL
	// The mfplay-backed helper binary is expected to be a thin process that
	// opens the URL via IMFPMediaPlayer and exposes the same HTTP status
	// surface as vlc_subprocess.go so this backend can reuse that polling
	// code path instead of duplicating it.
	e.setState(func(st *models.PlayerState) {
		st.IsPlaying = true
		st.Position = time.Duration(startMs) * time.Millisecond
	})
	return fmt.Errorf("mediafoundation: helper process wiring is host-specific and not bundled")
}

func (e *mediaFoundationEngine) Stop(ctx context.Context) error {
	if e.sup == nil {
		return nil
	}
	err := e.sup.Stop()
	e.sup = nil
	e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	return err
}

func (e *mediaFoundationEngine) TogglePause(ctx context.Context) error {
	e.setState(func(st *models.PlayerState) { st.IsPlaying = !st.IsPlaying })
	return nil
}

func (e *mediaFoundationEngine) SeekTo(ctx context.Context, at time.Duration) error {
	e.setState(func(st *models.PlayerState) { st.Position = at })
	return nil
}

func (e *mediaFoundationEngine) SeekRelative(ctx context.Context, delta time.Duration) error {
	return e.SeekTo(ctx, e.State().Position+delta)
}

func (e *mediaFoundationEngine) SetVolume(ctx context.Context, volume0To100 int) error {
	v := models.ClampVolume(volume0To100)
	e.setState(func(st *models.PlayerState) { st.Volume = v })
	return nil
}

// SetSpeed is not in this backend's capability set; the dispatch layer
// intercepts it before it ever reaches here. Kept as a no-op so
// mediaFoundationEngine still satisfies the Engine interface.
func (e *mediaFoundationEngine) SetSpeed(ctx context.Context, speed float64) error {
	return nil
}

func (e *mediaFoundationEngine) Close() error {
	if e.sup != nil {
		return e.sup.Stop()
	}
	return nil
}
