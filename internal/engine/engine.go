// Package engine implements the pluggable audio engine abstraction: a
// common Engine contract, a Swappable wrapper that can replace the active
// engine live, and backends for libVLC, MPV, Windows Media Foundation, and
// an ffplay subprocess fallback.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// errMediaFoundationUnavailable is returned by newMediaFoundationEngine on
// every platform except Windows.
var errMediaFoundationUnavailable = errors.New("engine: mediafoundation is only available on windows")

// errMockInjected is returned by mockEngine when SetFailNext(true) armed
// the next call.
var errMockInjected = errors.New("engine: mock failure injected")

// Engine is the contract every audio backend implements. Operations not
// supported by a given engine (per its Capabilities) are a no-op at this
// layer — the dispatch layer is responsible for reporting "not supported"
// to the user before it ever calls an unsupported operation.
type Engine interface {
	// Play starts playback of url. If startMs > 0, playback begins at that
	// offset when the engine can do so directly; otherwise the caller is
	// expected to issue a follow-up SeekTo once playback starts.
	Play(ctx context.Context, url string, startMs int64) error
	Stop(ctx context.Context) error
	TogglePause(ctx context.Context) error
	SeekTo(ctx context.Context, at time.Duration) error
	SeekRelative(ctx context.Context, delta time.Duration) error
	SetVolume(ctx context.Context, volume0To100 int) error
	SetSpeed(ctx context.Context, speed float64) error

	Name() string
	Capabilities() models.PlayerCapabilities
	State() models.PlayerState

	// Subscribe registers a callback invoked whenever the engine's state
	// changes. The callback must not block and must not call back into the
	// engine synchronously.
	Subscribe(func(models.PlayerState))

	// Close releases any resources (subprocess, IPC socket) held by the
	// engine. After Close, no other method may be called.
	Close() error
}

// Kind names one of the recognised engine backends.
type Kind string

const (
	KindVLC             Kind = "vlc"
	KindMPV             Kind = "mpv"
	KindMediaFoundation Kind = "mediafoundation"
	KindFFplay          Kind = "ffplay"
	KindMock            Kind = "mock"
)

// SelectionOrder is the auto-detection order: VLC, then MPV, then
// MediaFoundation (platform-gated — see select.go), then ffplay.
var SelectionOrder = []Kind{KindVLC, KindMPV, KindMediaFoundation, KindFFplay}
