// Package sync implements the gPodder Sync Engine: subscription and
// episode-action delta exchange with a gPodder API v2 server, credential
// storage via the OS keyring with a plaintext fallback, and an observer
// that turns playback snapshots into queued episode actions.
package sync

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/config"
	"github.com/podliner/podliner/internal/identity"
	"github.com/podliner/podliner/internal/models"
)

// OnlineChecker reports whether the app currently has network connectivity.
// Satisfied by *netstatus.Poller; an interface here keeps this package from
// importing it directly.
type OnlineChecker interface {
	Online() bool
}

// Service owns the gPodder sync state: credentials, pending actions, and
// the two monotonic server timestamps. All mutation of the persisted
// SyncConfig happens through the ConfigStore it was built with.
type Service struct {
	cfgStore *config.Store
	online   OnlineChecker
	creds    *credentialStore
	client   *wireClient

	mu sync.Mutex
}

// New builds a Service. httpClient may be nil to use a default 30s-timeout
// client.
func New(cfgStore *config.Store, online OnlineChecker, httpClient *http.Client) *Service {
	cur := cfgStore.Current()
	return &Service{
		cfgStore: cfgStore,
		online:   online,
		creds:    newCredentialStore(),
		client:   newWireClient(cur.Sync.ServerURL, httpClient),
	}
}

// resolvePassword returns the password to use for the configured username:
// keyring first, plaintext fallback if that's what was stored.
func (s *Service) resolvePassword(cfg models.SyncConfig) string {
	if pw, ok := s.creds.Lookup(cfg.Username); ok {
		return pw
	}
	return cfg.PlaintextPassword
}

// Login validates and stores new credentials: attempts the keyring first,
// falling back to plaintext-in-config with a one-time warning.
func (s *Service) Login(serverURL, username, password, deviceID string) error {
	if deviceID == "" {
		deviceID = models.DefaultDeviceID(identity.Hostname())
	}
	if len(deviceID) > models.MaxDeviceIDLen {
		deviceID = deviceID[:models.MaxDeviceIDLen]
	}

	fellBack, err := s.creds.Store(username, password)
	if err != nil {
		return newError(KindProtocol, "login", err)
	}

	s.cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ServerURL = strings.TrimRight(serverURL, "/")
		c.Sync.Username = username
		c.Sync.DeviceID = deviceID
		c.Sync.PlaintextFallback = fellBack
		if fellBack {
			c.Sync.PlaintextPassword = password
		} else {
			c.Sync.PlaintextPassword = ""
		}
	})

	s.mu.Lock()
	s.client = newWireClient(serverURL, s.client.httpClient)
	s.mu.Unlock()
	return nil
}

func (s *Service) requireOnlineAndConfigured(op string) (models.SyncConfig, error) {
	cfg := s.cfgStore.Current().Sync
	if !cfg.Configured() {
		return cfg, newError(KindNotConfigured, op, nil)
	}
	if s.online != nil && !s.online.Online() {
		return cfg, newError(KindOffline, op, nil)
	}
	return cfg, nil
}

// Pull fetches the subscription delta since the stored SubsTimestamp,
// applies additions (skipping any whose URL already exists,
// case-insensitive) and removals by URL, and persists the new timestamp
// plus LastKnownServerFeeds. apply is called once per addition and once
// per removal so the caller can mutate the library store.
func (s *Service) Pull(ctx context.Context, applyAdd func(url string), applyRemove func(url string)) error {
	cfg, err := s.requireOnlineAndConfigured("pull")
	if err != nil {
		return err
	}
	password := s.resolvePassword(cfg)

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	delta, err := client.PullSubscriptions(ctx, cfg.Username, password, cfg.DeviceID, cfg.SubsTimestamp)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(cfg.LastKnownServerFeeds))
	for _, u := range cfg.LastKnownServerFeeds {
		existing[strings.ToLower(u)] = true
	}
	for _, add := range delta.Add {
		if existing[strings.ToLower(add)] {
			continue
		}
		existing[strings.ToLower(add)] = true
		if applyAdd != nil {
			applyAdd(add)
		}
	}
	for _, rm := range delta.Remove {
		delete(existing, strings.ToLower(rm))
		if applyRemove != nil {
			applyRemove(rm)
		}
	}

	next := make([]string, 0, len(existing))
	for u := range existing {
		next = append(next, u)
	}

	s.cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.SubsTimestamp = delta.Timestamp
		c.Sync.LastKnownServerFeeds = next
	})
	return nil
}

// Push diffs currentFeedURLs against LastKnownServerFeeds and uploads the
// difference, then separately uploads any PendingActions, clearing them on
// success. A subscription-push failure does not prevent an actions-push
// attempt, and vice versa; the first error encountered is returned after
// both have been attempted.
func (s *Service) Push(ctx context.Context, currentFeedURLs []string) error {
	cfg, err := s.requireOnlineAndConfigured("push")
	if err != nil {
		return err
	}
	password := s.resolvePassword(cfg)

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	subErr := s.pushSubscriptions(ctx, client, cfg, password, currentFeedURLs)
	actErr := s.pushActions(ctx, client, cfg, password)

	if subErr != nil {
		return subErr
	}
	return actErr
}

func (s *Service) pushSubscriptions(ctx context.Context, client *wireClient, cfg models.SyncConfig, password string, currentFeedURLs []string) error {
	knownSet := make(map[string]bool, len(cfg.LastKnownServerFeeds))
	for _, u := range cfg.LastKnownServerFeeds {
		knownSet[strings.ToLower(u)] = true
	}
	currentSet := make(map[string]bool, len(currentFeedURLs))
	for _, u := range currentFeedURLs {
		currentSet[strings.ToLower(u)] = true
	}

	var add, remove []string
	for _, u := range currentFeedURLs {
		if !knownSet[strings.ToLower(u)] {
			add = append(add, u)
		}
	}
	for _, u := range cfg.LastKnownServerFeeds {
		if !currentSet[strings.ToLower(u)] {
			remove = append(remove, u)
		}
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}

	ts, err := client.PushSubscriptions(ctx, cfg.Username, password, cfg.DeviceID, add, remove)
	if err != nil {
		return err
	}
	s.cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.SubsTimestamp = ts
		c.Sync.LastKnownServerFeeds = append([]string{}, currentFeedURLs...)
	})
	return nil
}

func (s *Service) pushActions(ctx context.Context, client *wireClient, cfg models.SyncConfig, password string) error {
	if len(cfg.PendingActions) == 0 {
		return nil
	}
	payload := make([]actionPayload, 0, len(cfg.PendingActions))
	for _, a := range cfg.PendingActions {
		payload = append(payload, actionPayload{
			Podcast:   a.PodcastURL,
			Episode:   a.EpisodeURL,
			Action:    string(a.Action),
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Position:  a.PositionS,
			Total:     a.TotalS,
		})
	}

	ts, err := client.PushActions(ctx, cfg.Username, password, payload)
	if err != nil {
		return err
	}
	s.cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.ActionsTimestamp = ts
		c.Sync.PendingActions = nil
	})
	return nil
}

// QueueAction appends an action to PendingActions, to be uploaded on the
// next successful Push. It never fails — offline accumulation is the
// whole point.
func (s *Service) QueueAction(a models.SyncAction) {
	s.cfgStore.Update(func(c *models.AppConfig) {
		c.Sync.PendingActions = append(c.Sync.PendingActions, a)
	})
}
