//go:build linux

// Package mpris bridges the Playback Coordinator to the MPRIS2 D-Bus
// interface, so desktop Linux session tools (media keys, notification
// widgets, panel applets) can see and control podliner like any other
// player.
package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/podliner/podliner/internal/engine"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
	"github.com/podliner/podliner/internal/playback"
)

// seekJumpThreshold is the minimum unexplained position delta between two
// consecutive snapshots (beyond what normal playback speed could produce
// in the time elapsed) that counts as a seek for IsSeekDetected.
const seekJumpThreshold = 2 * time.Second

// Bridge owns the MPRIS D-Bus server and keeps a cached copy of the latest
// PlaybackSnapshot for the adapters to read synchronously (D-Bus property
// getters can't block on the coordinator).
type Bridge struct {
	coord *playback.Coordinator
	eng   engine.Engine
	lib   *library.Store
	srv   *server.Server
	subID string

	mu       sync.Mutex
	last     models.PlaybackSnapshot
	haveLast bool
}

// New builds and starts the MPRIS bridge. subID should be a unique string
// (the bridge subscribes to the coordinator's event buses under it).
func New(coord *playback.Coordinator, eng engine.Engine, lib *library.Store, subID string) (*Bridge, error) {
	b := &Bridge{coord: coord, eng: eng, lib: lib, subID: subID}

	root := &rootAdapter{}
	player := &playerAdapter{bridge: b}
	b.srv = server.NewServer("podliner", root, player)

	go func() {
		_ = b.srv.Listen()
	}()
	return b, nil
}

// Run consumes snapshot/status events until ctx is canceled, updating the
// cached snapshot and firing the Seeked signal when IsSeekDetected reports
// an unexplained jump.
func (b *Bridge) Run(ctx context.Context) {
	snaps := b.coord.Snapshots().Subscribe(b.subID)
	defer b.coord.Snapshots().Unsubscribe(b.subID)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			b.mu.Lock()
			prev := b.last
			hadPrev := b.haveLast
			b.last = snap
			b.haveLast = true
			b.mu.Unlock()

			if hadPrev && IsSeekDetected(prev, snap) {
				b.srv.EmitSeeked(types.Microseconds(snap.Position.Microseconds()))
			}
		}
	}
}

// Close stops the D-Bus server.
func (b *Bridge) Close() error {
	return b.srv.Stop()
}

func (b *Bridge) snapshot() (models.PlaybackSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.haveLast
}

// maxSeekWindow bounds how much elapsed wall time between two snapshots is
// still attributable to normal playback rather than, say, the process
// having been suspended and resumed.
const maxSeekWindow = 10 * time.Second

// IsSeekDetected reports whether the position jump from prev to cur is too
// large to be explained by normal elapsed-time-at-speed playback between
// the two snapshots' timestamps — i.e. the user (or another client) seeked.
// Returns false whenever prev and cur are for different episodes, whenever
// the elapsed time is non-positive or exceeds maxSeekWindow, or whenever
// prev was not actually playing (a paused player's position doesn't move,
// so any delta there is a resume artifact, not a seek).
func IsSeekDetected(prev, cur models.PlaybackSnapshot) bool {
	if prev.EpisodeID == nil || cur.EpisodeID == nil || *prev.EpisodeID != *cur.EpisodeID {
		return false
	}
	if !prev.IsPlaying {
		return false
	}
	elapsed := cur.Timestamp.Sub(prev.Timestamp)
	if elapsed <= 0 || elapsed > maxSeekWindow {
		return false
	}

	expected := prev.Position + time.Duration(float64(elapsed)*prev.Speed)
	delta := cur.Position - expected
	if delta < 0 {
		delta = -delta
	}
	return delta > seekJumpThreshold
}

// rootAdapter implements the org.mpris.MediaPlayer2 root interface.
// podliner has no window to raise and manages its own lifecycle.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error                { return nil }
func (r *rootAdapter) Quit() error                 { return nil }
func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return "podliner", nil }

//nolint:revive // method name fixed by the MPRIS interface
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/mp3", "audio/ogg", "audio/x-m4a"}, nil
}

// playerAdapter implements org.mpris.MediaPlayer2.Player, delegating
// transport controls to the engine directly (the Coordinator only starts
// new sessions) and queue navigation to the library store.
type playerAdapter struct {
	bridge *Bridge
}

func (p *playerAdapter) Next() error {
	lib := p.bridge.lib.Current()
	snap, ok := p.bridge.snapshot()
	if !ok || snap.EpisodeID == nil {
		return nil
	}
	next, _, found := playback.NextEpisode(lib, *snap.EpisodeID, false, true)
	if !found {
		return nil
	}
	return p.bridge.coord.Play(next)
}

func (p *playerAdapter) Previous() error {
	return nil // no well-defined "previous" over a feed walked forward in time
}

func (p *playerAdapter) Pause() error {
	snap, ok := p.bridge.snapshot()
	if ok && !snap.IsPlaying {
		return nil
	}
	return p.bridge.eng.TogglePause(context.Background())
}

func (p *playerAdapter) PlayPause() error {
	return p.bridge.eng.TogglePause(context.Background())
}

func (p *playerAdapter) Stop() error {
	return p.bridge.eng.Stop(context.Background())
}

func (p *playerAdapter) Play() error {
	snap, ok := p.bridge.snapshot()
	if ok && !snap.IsPlaying {
		return p.bridge.eng.TogglePause(context.Background())
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return p.bridge.eng.SeekRelative(context.Background(), time.Duration(offset)*time.Microsecond)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.bridge.eng.SeekTo(context.Background(), time.Duration(position)*time.Microsecond)
}

//nolint:revive // method name fixed by the MPRIS interface
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	snap, ok := p.bridge.snapshot()
	if !ok {
		return types.PlaybackStatusStopped, nil
	}
	if snap.IsPlaying {
		return types.PlaybackStatusPlaying, nil
	}
	return types.PlaybackStatusPaused, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	snap, ok := p.bridge.snapshot()
	if !ok {
		return 1.0, nil
	}
	return snap.Speed, nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	return p.bridge.eng.SetSpeed(context.Background(), rate)
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap, ok := p.bridge.snapshot()
	if !ok || snap.EpisodeID == nil {
		return types.Metadata{}, nil
	}
	lib := p.bridge.lib.Current()
	ep, found := lib.EpisodeByID(*snap.EpisodeID)
	if !found {
		return types.Metadata{}, nil
	}
	feed, _ := lib.FeedByID(ep.FeedID)

	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(ep.ID.String())),
		Length:  types.Microseconds(snap.Length.Microseconds()),
		Title:   ep.Title,
		Album:   feed.Title,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	state := p.bridge.eng.State()
	return float64(state.Volume) / 100.0, nil
}

func (p *playerAdapter) SetVolume(volume float64) error {
	return p.bridge.eng.SetVolume(context.Background(), models.ClampVolume(int(volume*100)))
}

func (p *playerAdapter) Position() (int64, error) {
	snap, ok := p.bridge.snapshot()
	if !ok {
		return 0, nil
	}
	return snap.Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return models.EngineMinSpeed, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return models.EngineMaxSpeed, nil }

func (p *playerAdapter) CanGoNext() (bool, error) {
	lib := p.bridge.lib.Current()
	return len(lib.Queue) > 0 || len(lib.Episodes) > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) { return false, nil }
func (p *playerAdapter) CanPlay() (bool, error)       { return true, nil }
func (p *playerAdapter) CanPause() (bool, error)      { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)       { return true, nil }
func (p *playerAdapter) CanControl() (bool, error)    { return true, nil }

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
