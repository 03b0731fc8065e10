//go:build libvlc

package engine

import (
	"context"
	"fmt"
	"time"

	libvlc "github.com/adrg/libvlc-go/v3"
	"github.com/podliner/podliner/internal/models"
)

// vlcCGOEngine drives libVLC directly via CGO bindings instead of shelling
// out to the vlc binary and polling its HTTP interface. It is only built
// with `-tags libvlc` (a real libvlc install + cgo toolchain required),
// mirroring how the production libvlc backend in the pack is itself
// platform/feature-gated behind a build tag rather than always compiled.
type vlcCGOEngine struct {
	*stateBase
	player   *libvlc.Player
	media    *libvlc.Media
	pollStop context.CancelFunc
}

var libvlcInitErr error

func initLibVLC() error {
	if libvlcInitErr == nil {
		libvlcInitErr = libvlc.Init("--no-video", "--intf=dummy")
	}
	return libvlcInitErr
}

func newVLCCGOEngine() (*vlcCGOEngine, error) {
	if err := initLibVLC(); err != nil {
		return nil, fmt.Errorf("vlc: init libvlc: %w", err)
	}
	player, err := libvlc.NewPlayer()
	if err != nil {
		return nil, fmt.Errorf("vlc: new player: %w", err)
	}
	caps := models.PlayerCapabilities(0).With(
		models.CapPlay, models.CapPause, models.CapStop, models.CapSeek,
		models.CapVolume, models.CapSpeed, models.CapNetwork, models.CapLocal,
	)
	return &vlcCGOEngine{stateBase: newStateBase(caps), player: player}, nil
}

func (e *vlcCGOEngine) Name() string { return string(KindVLC) }

func (e *vlcCGOEngine) Play(ctx context.Context, mediaURL string, startMs int64) error {
	media, err := e.player.LoadMediaFromURL(mediaURL)
	if err != nil {
		return fmt.Errorf("vlc: load media: %w", err)
	}
	e.media = media
	if err := e.player.Play(); err != nil {
		return fmt.Errorf("vlc: play: %w", err)
	}
	e.setState(func(st *models.PlayerState) { st.IsPlaying = true })

	pollCtx, cancel := context.WithCancel(context.Background())
	e.pollStop = cancel
	go e.pollLoop(pollCtx)

	if startMs > 0 {
		go func() {
			time.Sleep(400 * time.Millisecond)
			_ = e.SeekTo(ctx, time.Duration(startMs)*time.Millisecond)
		}()
	}
	return nil
}

func (e *vlcCGOEngine) Stop(ctx context.Context) error {
	if e.pollStop != nil {
		e.pollStop()
		e.pollStop = nil
	}
	if err := e.player.Stop(); err != nil {
		return fmt.Errorf("vlc: stop: %w", err)
	}
	e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	return nil
}

func (e *vlcCGOEngine) TogglePause(ctx context.Context) error {
	playing, _ := e.player.IsPlaying()
	if err := e.player.SetPause(playing); err != nil {
		return fmt.Errorf("vlc: toggle pause: %w", err)
	}
	e.setState(func(st *models.PlayerState) { st.IsPlaying = !playing })
	return nil
}

func (e *vlcCGOEngine) SeekTo(ctx context.Context, at time.Duration) error {
	ms := int(at / time.Millisecond)
	if err := e.player.SetMediaTime(ms); err != nil {
		return fmt.Errorf("vlc: seek: %w", err)
	}
	return nil
}

func (e *vlcCGOEngine) SeekRelative(ctx context.Context, delta time.Duration) error {
	cur, err := e.player.MediaTime()
	if err != nil {
		return fmt.Errorf("vlc: read position: %w", err)
	}
	target := cur + int(delta/time.Millisecond)
	if target < 0 {
		target = 0
	}
	return e.SeekTo(ctx, time.Duration(target)*time.Millisecond)
}

func (e *vlcCGOEngine) SetVolume(ctx context.Context, volume0To100 int) error {
	v := models.ClampVolume(volume0To100)
	if err := e.player.SetVolume(v); err != nil {
		return fmt.Errorf("vlc: set volume: %w", err)
	}
	e.setState(func(st *models.PlayerState) { st.Volume = v })
	return nil
}

func (e *vlcCGOEngine) SetSpeed(ctx context.Context, speed float64) error {
	s := models.ClampSpeed(speed, models.EngineMinSpeed, models.EngineMaxSpeed)
	if err := e.player.SetPlaybackRate(float32(s)); err != nil {
		return fmt.Errorf("vlc: set speed: %w", err)
	}
	e.setState(func(st *models.PlayerState) { st.Speed = s })
	return nil
}

func (e *vlcCGOEngine) Close() error {
	if e.pollStop != nil {
		e.pollStop()
	}
	e.player.Stop()
	return e.player.Release()
}

func (e *vlcCGOEngine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce()
		}
	}
}

func (e *vlcCGOEngine) pollOnce() {
	ms, err := e.player.MediaTime()
	if err != nil {
		return
	}
	lengthMs, _ := e.player.MediaLength()
	playing, _ := e.player.IsPlaying()
	e.setState(func(st *models.PlayerState) {
		st.Position = time.Duration(ms) * time.Millisecond
		if lengthMs > 0 {
			length := time.Duration(lengthMs) * time.Millisecond
			st.Length = &length
		}
		st.IsPlaying = playing
	})
}
