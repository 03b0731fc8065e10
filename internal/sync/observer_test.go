package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/podliner/podliner/internal/config"
	"github.com/podliner/podliner/internal/events"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
)

type fakeSnapshotSource struct {
	snapBus   *events.Bus[models.PlaybackSnapshot]
	statusBus *events.Bus[models.PlaybackStatus]
}

func newFakeSnapshotSource() *fakeSnapshotSource {
	return &fakeSnapshotSource{
		snapBus:   events.NewBus[models.PlaybackSnapshot](),
		statusBus: events.NewBus[models.PlaybackStatus](),
	}
}

func (f *fakeSnapshotSource) Snapshots() *events.Bus[models.PlaybackSnapshot]   { return f.snapBus }
func (f *fakeSnapshotSource) StatusChanges() *events.Bus[models.PlaybackStatus] { return f.statusBus }

func newTestLibraryWithTwoEpisodes(t *testing.T) (*library.Store, models.Episode, models.Episode) {
	t.Helper()
	store := library.New(filepath.Join(t.TempDir(), "library.json"))
	store.Load()
	feedID := models.NewID()
	ep1 := models.Episode{ID: models.NewID(), FeedID: feedID, AudioURL: "https://a.test/ep1.mp3"}
	ep2 := models.Episode{ID: models.NewID(), FeedID: feedID, AudioURL: "https://a.test/ep2.mp3"}
	store.Update(func(l *models.Library) {
		l.Feeds = append(l.Feeds, models.Feed{ID: feedID, URL: "https://a.test/feed.xml"})
		l.Episodes = append(l.Episodes, ep1, ep2)
	})
	return store, ep1, ep2
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestObserverQueuesActionForPreviousEpisodeOnNewSession(t *testing.T) {
	cfgStore := config.New(filepath.Join(t.TempDir(), "appsettings.json"))
	cfgStore.Load()
	svc := New(cfgStore, fakeOnline{online: true}, nil)
	lib, ep1, ep2 := newTestLibraryWithTwoEpisodes(t)

	obs := NewObserver(svc, lib, "test-observer")
	src := newFakeSnapshotSource()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx, src)
	time.Sleep(20 * time.Millisecond) // let Subscribe land

	ep1ID := ep1.ID
	src.Snapshots().Publish(models.NewSnapshot(1, &ep1ID, 10*time.Second, 100*time.Second, true, 1.0, time.Now()))
	time.Sleep(20 * time.Millisecond)

	ep2ID := ep2.ID
	src.Snapshots().Publish(models.NewSnapshot(2, &ep2ID, 0, 50*time.Second, true, 1.0, time.Now()))

	waitUntil(t, time.Second, func() bool {
		return len(cfgStore.Current().Sync.PendingActions) == 1
	})

	actions := cfgStore.Current().Sync.PendingActions
	if actions[0].EpisodeURL != ep1.AudioURL {
		t.Errorf("got action for %q, want previous episode %q", actions[0].EpisodeURL, ep1.AudioURL)
	}
	if actions[0].PositionS != 10 {
		t.Errorf("got PositionS=%d, want 10", actions[0].PositionS)
	}
}

func TestObserverQueuesActionOnEnded(t *testing.T) {
	cfgStore := config.New(filepath.Join(t.TempDir(), "appsettings.json"))
	cfgStore.Load()
	svc := New(cfgStore, fakeOnline{online: true}, nil)
	lib, ep1, _ := newTestLibraryWithTwoEpisodes(t)

	obs := NewObserver(svc, lib, "test-observer-ended")
	src := newFakeSnapshotSource()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx, src)
	time.Sleep(20 * time.Millisecond)

	ep1ID := ep1.ID
	src.Snapshots().Publish(models.NewSnapshot(1, &ep1ID, 99*time.Second, 100*time.Second, true, 1.0, time.Now()))
	time.Sleep(20 * time.Millisecond)
	src.StatusChanges().Publish(models.StatusEnded)

	waitUntil(t, time.Second, func() bool {
		return len(cfgStore.Current().Sync.PendingActions) == 1
	})

	actions := cfgStore.Current().Sync.PendingActions
	if actions[0].EpisodeURL != ep1.AudioURL {
		t.Errorf("got action for %q, want ended episode %q", actions[0].EpisodeURL, ep1.AudioURL)
	}
}
