package playback

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/podliner/podliner/internal/engine"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
)

func newTestStore(t *testing.T) *library.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.json")
	s := library.New(path)
	s.Load()
	return s
}

func seedEpisode(t *testing.T, s *library.Store, durationMs, lastPosMs int64) models.Episode {
	t.Helper()
	feedID := models.NewID()
	ep := models.Episode{
		ID:         models.NewID(),
		FeedID:     feedID,
		AudioURL:   "https://example.test/ep.mp3",
		DurationMs: durationMs,
		Progress:   models.Progress{LastPosMs: lastPosMs},
	}
	s.Update(func(l *models.Library) {
		l.Feeds = append(l.Feeds, models.Feed{ID: feedID, URL: "https://example.test/feed.xml"})
		l.Episodes = append(l.Episodes, ep)
	})
	return ep
}

func TestCoordinatorPlayStartsLoadingAndEngine(t *testing.T) {
	store := newTestStore(t)
	ep := seedEpisode(t, store, 0, 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	if err := c.Play(ep); err != nil {
		t.Fatalf("Play: %v", err)
	}

	id, epID, status, ok := c.CurrentSession()
	if !ok || id != 1 || epID != ep.ID || status != models.StatusLoading {
		t.Fatalf("unexpected session state: id=%d epID=%v status=%v ok=%v", id, epID, status, ok)
	}
}

func TestCoordinatorPlayTwiceIncrementsSession(t *testing.T) {
	store := newTestStore(t)
	epA := seedEpisode(t, store, 0, 0)
	epB := seedEpisode(t, store, 0, 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	_ = c.Play(epA)
	_ = c.Play(epB)

	id, epID, _, _ := c.CurrentSession()
	if id != 2 || epID != epB.ID {
		t.Fatalf("expected session 2 on episode B, got id=%d epID=%v", id, epID)
	}
}

func TestCoordinatorPlayAppendsHistoryEntry(t *testing.T) {
	store := newTestStore(t)
	epA := seedEpisode(t, store, 0, 0)
	epB := seedEpisode(t, store, 0, 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	_ = c.Play(epA)
	_ = c.Play(epB)

	hist := store.Current().History
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].EpisodeID != epA.ID || hist[1].EpisodeID != epB.ID {
		t.Fatalf("expected history in play order, got %+v", hist)
	}
}

func TestCoordinatorTickPersistsProgressAndEmitsSnapshot(t *testing.T) {
	store := newTestStore(t)
	ep := seedEpisode(t, store, 0, 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	sub := c.Snapshots().Subscribe("test")
	defer c.Snapshots().Unsubscribe("test")

	_ = c.Play(ep)
	length := 10 * time.Minute
	c.Tick(models.PlayerState{IsPlaying: true, Position: 2 * time.Minute, Length: &length, Speed: 1.0})

	select {
	case snap := <-sub:
		if snap.SessionID != 1 || snap.Position != 2*time.Minute || snap.Length != 10*time.Minute {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	default:
		t.Fatal("expected a snapshot to be published")
	}

	lib := store.Current()
	got, found := lib.EpisodeByID(ep.ID)
	if !found {
		t.Fatal("episode missing from library")
	}
	if got.Progress.LastPosMs != (2 * time.Minute).Milliseconds() {
		t.Fatalf("expected persisted position, got %d", got.Progress.LastPosMs)
	}
}

func TestCoordinatorTickMarksPlayedNearEnd(t *testing.T) {
	store := newTestStore(t)
	ep := seedEpisode(t, store, (10 * time.Minute).Milliseconds(), 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	_ = c.Play(ep)

	length := 10 * time.Minute
	c.Tick(models.PlayerState{IsPlaying: true, Position: length - 10*time.Second, Length: &length, Speed: 1.0})

	lib := store.Current()
	got, _ := lib.EpisodeByID(ep.ID)
	if !got.ManuallyMarkedPlayed {
		t.Fatal("expected episode to be auto-marked played at 90%+ through a long episode")
	}
	if got.Progress.LastPlayedAt == nil {
		t.Fatal("expected LastPlayedAt to be recorded")
	}
}

func TestCoordinatorTickEndDetectionFiresAutoAdvanceOnce(t *testing.T) {
	store := newTestStore(t)
	feedID := models.NewID()
	now := time.Now()
	current := models.Episode{ID: models.NewID(), FeedID: feedID, AudioURL: "https://example.test/a.mp3", PubDate: now, DurationMs: (10 * time.Minute).Milliseconds()}
	next := models.Episode{ID: models.NewID(), FeedID: feedID, AudioURL: "https://example.test/b.mp3", PubDate: now.Add(-time.Hour)}
	store.Update(func(l *models.Library) {
		l.Feeds = append(l.Feeds, models.Feed{ID: feedID, URL: "https://example.test/feed.xml"})
		l.Episodes = append(l.Episodes, current, next)
	})

	eng := engine.NewMockEngine()
	defer eng.Close()
	c := NewCoordinator(eng, store, false, true)
	advanceSub := c.AutoAdvanceSuggestions().Subscribe("test")
	defer c.AutoAdvanceSuggestions().Unsubscribe("test")

	_ = c.Play(current)

	length := 10 * time.Minute
	state := models.PlayerState{IsPlaying: false, Position: length - time.Second, Length: &length, Speed: 1.0}
	c.Tick(state)
	c.Tick(state) // second tick must not re-fire

	var got []models.Episode
	draining := true
	for draining {
		select {
		case ep := <-advanceSub:
			got = append(got, ep)
		default:
			draining = false
		}
	}
	if len(got) != 1 || got[0].ID != next.ID {
		t.Fatalf("expected exactly one AutoAdvanceSuggested(next), got %+v", got)
	}

	_, _, status, _ := c.CurrentSession()
	if status != models.StatusEnded {
		t.Fatalf("expected Ended status, got %v", status)
	}
}

func TestCoordinatorResumeSeekScheduledAndGuardedBySession(t *testing.T) {
	store := newTestStore(t)
	ep := seedEpisode(t, store, (10 * time.Minute).Milliseconds(), (2 * time.Minute).Milliseconds())
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	_ = c.Play(ep)

	time.Sleep(resumeSeekDelay + 150*time.Millisecond)

	st := eng.State()
	if st.Position < 90*time.Second {
		t.Fatalf("expected resume seek to ~2m, got position %v", st.Position)
	}
}

func TestCoordinatorPlayTrimsQueueThroughPlayedEntry(t *testing.T) {
	store := newTestStore(t)
	stale := models.NewID()
	target := seedEpisode(t, store, 0, 0)
	trailing := seedEpisode(t, store, 0, 0)
	store.Update(func(l *models.Library) {
		l.Queue = models.Queue{stale, target.ID, trailing.ID}
	})

	eng := engine.NewMockEngine()
	defer eng.Close()
	c := NewCoordinator(eng, store, false, true)
	queueSub := c.QueueChanges().Subscribe("test")
	defer c.QueueChanges().Unsubscribe("test")

	_ = c.Play(target)

	select {
	case <-queueSub:
	default:
		t.Fatal("expected QueueChanged to fire when Play trims the queue")
	}

	lib := store.Current()
	if len(lib.Queue) != 1 || lib.Queue[0] != trailing.ID {
		t.Fatalf("expected only the trailing entry left in queue, got %+v", lib.Queue)
	}
}

func TestCoordinatorPlayCancelsPreviousResumeSeek(t *testing.T) {
	store := newTestStore(t)
	epA := seedEpisode(t, store, (10 * time.Minute).Milliseconds(), (5 * time.Minute).Milliseconds())
	epB := seedEpisode(t, store, 0, 0)
	eng := engine.NewMockEngine()
	defer eng.Close()

	c := NewCoordinator(eng, store, false, true)
	_ = c.Play(epA)
	_ = c.Play(epB)

	time.Sleep(resumeSeekDelay + 150*time.Millisecond)

	st := eng.State()
	if st.Position >= time.Minute {
		t.Fatalf("stale resume seek from session A should have been dropped, got position %v", st.Position)
	}
}
