package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/podliner/podliner/internal/config"
	"github.com/podliner/podliner/internal/models"
)

type fakeOnline struct{ online bool }

func (f fakeOnline) Online() bool { return f.online }

func newTestConfigStore(t *testing.T) *config.Store {
	t.Helper()
	s := config.New(filepath.Join(t.TempDir(), "appsettings.json"))
	s.Load()
	return s
}

func TestPullNotConfiguredReturnsNotConfigured(t *testing.T) {
	cfgStore := newTestConfigStore(t)
	svc := New(cfgStore, fakeOnline{online: true}, nil)

	err := svc.Pull(context.Background(), nil, nil)
	serr, ok := err.(*Error)
	if !ok || serr.Kind != KindNotConfigured {
		t.Fatalf("got %v, want KindNotConfigured", err)
	}
}

func TestPullOfflineReturnsOffline(t *testing.T) {
	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = "https://example.test"
		c.Sync.Username = "alice"
	})
	svc := New(cfgStore, fakeOnline{online: false}, nil)

	err := svc.Pull(context.Background(), nil, nil)
	serr, ok := err.(*Error)
	if !ok || serr.Kind != KindOffline {
		t.Fatalf("got %v, want KindOffline", err)
	}
}

func TestPullAppliesAdditionsSkippingExistingCaseInsensitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(subscriptionDelta{
			Add:       []string{"https://NEW.test/feed", "https://Existing.test/feed"},
			Remove:    nil,
			Timestamp: 42,
		})
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
		c.Sync.DeviceID = "podliner-test"
		c.Sync.LastKnownServerFeeds = []string{"https://existing.test/feed"}
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())

	var added []string
	err := svc.Pull(context.Background(), func(url string) { added = append(added, url) }, nil)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(added) != 1 || added[0] != "https://NEW.test/feed" {
		t.Errorf("got added=%v, want exactly the new feed (existing skipped case-insensitively)", added)
	}
	if got := cfgStore.Current().Sync.SubsTimestamp; got != 42 {
		t.Errorf("SubsTimestamp = %d, want 42", got)
	}
}

func TestPullAppliesRemovals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(subscriptionDelta{
			Remove:    []string{"https://gone.test/feed"},
			Timestamp: 7,
		})
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
		c.Sync.LastKnownServerFeeds = []string{"https://gone.test/feed", "https://keep.test/feed"}
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())

	var removed []string
	err := svc.Pull(context.Background(), nil, func(url string) { removed = append(removed, url) })
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(removed) != 1 || removed[0] != "https://gone.test/feed" {
		t.Errorf("got removed=%v", removed)
	}
	feeds := cfgStore.Current().Sync.LastKnownServerFeeds
	if len(feeds) != 1 || feeds[0] != "https://keep.test/feed" {
		t.Errorf("got LastKnownServerFeeds=%v, want only keep.test", feeds)
	}
}

func TestPushUploadsSubscriptionDiffAndActions(t *testing.T) {
	var sawActions bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/2/subscriptions/alice/podliner-test.json":
			var body subscriptionDelta
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.Add) != 1 || body.Add[0] != "https://a.test/feed" {
				t.Errorf("unexpected subscription push body: %+v", body)
			}
			json.NewEncoder(w).Encode(subscriptionDelta{Timestamp: 100})
		case r.Method == http.MethodPost && r.URL.Path == "/api/2/episodes/alice.json":
			sawActions = true
			var body []actionPayload
			json.NewDecoder(r.Body).Decode(&body)
			if len(body) != 1 || body[0].Podcast != "https://a.test/feed" {
				t.Errorf("unexpected action push body: %+v", body)
			}
			json.NewEncoder(w).Encode(actionsResponse{Timestamp: 200})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
		c.Sync.DeviceID = "podliner-test"
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())
	svc.QueueAction(models.SyncAction{PodcastURL: "https://a.test/feed", EpisodeURL: "https://a.test/ep1.mp3", Action: models.SyncActionPlay})

	if err := svc.Push(context.Background(), []string{"https://a.test/feed"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !sawActions {
		t.Error("expected the episodes endpoint to be hit")
	}
	cur := cfgStore.Current()
	if len(cur.Sync.PendingActions) != 0 {
		t.Errorf("expected PendingActions cleared after successful push, got %v", cur.Sync.PendingActions)
	}
	if cur.Sync.SubsTimestamp != 100 || cur.Sync.ActionsTimestamp != 200 {
		t.Errorf("got timestamps subs=%d actions=%d, want 100/200", cur.Sync.SubsTimestamp, cur.Sync.ActionsTimestamp)
	}
}

func TestPushWithNoDiffAndNoActionsIsNoop(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
		c.Sync.LastKnownServerFeeds = []string{"https://a.test/feed"}
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())

	if err := svc.Push(context.Background(), []string{"https://a.test/feed"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if hits != 0 {
		t.Errorf("expected no HTTP calls when nothing changed, got %d", hits)
	}
}

func TestAuthFailureClassifiedAsAuthFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())

	err := svc.Pull(context.Background(), nil, nil)
	serr, ok := err.(*Error)
	if !ok || serr.Kind != KindAuthFailed {
		t.Fatalf("got %v, want KindAuthFailed", err)
	}
}

func TestServerErrorClassifiedAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfgStore := newTestConfigStore(t)
	cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = srv.URL
		c.Sync.Username = "alice"
	})
	svc := New(cfgStore, fakeOnline{online: true}, srv.Client())

	err := svc.Pull(context.Background(), nil, nil)
	serr, ok := err.(*Error)
	if !ok || serr.Kind != KindTransient {
		t.Fatalf("got %v, want KindTransient", err)
	}
}
