// Package runtime wires every component into a single explicit context, in a
// fixed construction order: ConfigStore, LibraryStore, Engine,
// PlaybackCoordinator, DownloadManager, Dispatcher, SyncService. Teardown
// runs in reverse. There is no global mutable state anywhere in podliner —
// every command handler and background loop reaches its collaborators
// through an *App.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/podliner/podliner/internal/command"
	"github.com/podliner/podliner/internal/config"
	"github.com/podliner/podliner/internal/downloads"
	"github.com/podliner/podliner/internal/engine"
	"github.com/podliner/podliner/internal/feeds"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
	"github.com/podliner/podliner/internal/netstatus"
	"github.com/podliner/podliner/internal/paths"
	"github.com/podliner/podliner/internal/playback"
	"github.com/podliner/podliner/internal/sync"
)

// httpTimeout bounds every outbound HTTP call podliner makes (feeds,
// downloads, sync).
const httpTimeout = 30 * time.Second

// App owns every long-lived component and the single Dispatcher routing
// command-mode input to them.
type App struct {
	Dirs paths.Dirs

	Config  *config.Store
	Library *library.Store

	Engine     *engine.Swappable
	EngineKind engine.Kind

	Coordinator *playback.Coordinator
	Downloads   *downloads.Manager
	Feeds       *feeds.Service
	Net         *netstatus.Poller
	Sync        *sync.Service

	syncObserver *sync.Observer

	Dispatcher *command.Dispatcher

	quitRequested bool
	quitForce     bool

	cancelBackground context.CancelFunc
}

// Options carries the handful of settings a process entry point resolves
// from flags rather than from the persisted config, mirroring the
// teacher's --mock hardware-bypass flag.
type Options struct {
	// MockEngine substitutes engine.NewMockEngine for engine.Select,
	// letting the coordinator, downloader, and dispatcher run without any
	// real audio backend installed.
	MockEngine bool
	// ForceOffline seeds the connectivity poller as manually offline
	// regardless of the persisted StartOffline setting.
	ForceOffline bool
}

// New constructs every component in construction order (see the package
// doc) and registers the backend-owned command handlers. It does not start
// any background goroutine — call Run for that, once the caller is ready.
func New(dirs paths.Dirs, opts Options) (*App, error) {
	a := &App{Dirs: dirs}

	a.Config = config.New(dirs.ConfigFile())
	cfg := a.Config.Load()

	a.Library = library.New(dirs.LibraryFile())
	lib := a.Library.Load()

	var (
		initial engine.Engine
		kind    engine.Kind
	)
	if opts.MockEngine {
		initial, kind = engine.NewMockEngine(), engine.KindMock
	} else {
		var err error
		initial, kind, err = engine.Select(cfg.EnginePreference, "")
		if err != nil {
			return nil, fmt.Errorf("runtime: %w", err)
		}
	}
	a.EngineKind = kind
	if models.EnginePreference(kind) != cfg.EffectiveEngine {
		a.Config.Update(func(c *models.AppConfig) { c.EffectiveEngine = models.EnginePreference(kind) })
	}
	ctx := context.Background()
	_ = initial.SetVolume(ctx, cfg.Volume)
	_ = initial.SetSpeed(ctx, cfg.Speed)
	a.Engine = engine.NewSwappable(initial)

	a.Coordinator = playback.NewCoordinator(a.Engine, a.Library, cfg.ViewDefaults.UnplayedOnly, cfg.WrapAdvance)

	httpClient := &http.Client{Timeout: httpTimeout}
	a.Downloads = downloads.New(dirs.Downloads, httpClient)
	a.Downloads.Rehydrate(expectedDownloadPaths(lib, dirs.Downloads))
	a.Downloads.EnsureRunning()

	a.Feeds = feeds.NewService(a.Library, &externalFeedParser{})

	a.Net = netstatus.New(func(online bool) {
		slog.Info("runtime: connectivity changed", "online", online)
	})
	if cfg.StartOffline || opts.ForceOffline {
		a.Net.SetManualOffline(true)
	}

	a.Dispatcher = command.NewDispatcher()
	a.registerHandlers()

	a.Sync = sync.New(a.Config, a.Net, httpClient)
	a.syncObserver = sync.NewObserver(a.Sync, a.Library, "sync-observer")

	return a, nil
}

// Run starts every background loop (connectivity polling, the sync
// observer) and blocks until ctx is canceled. Callers typically run this in
// its own goroutine alongside a foreground input loop.
func (a *App) Run(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.cancelBackground = cancel

	done := make(chan struct{}, 2)
	go func() { a.Net.Run(bgCtx); done <- struct{}{} }()
	go func() { a.syncObserver.Run(bgCtx, a.Coordinator); done <- struct{}{} }()

	<-bgCtx.Done()
	<-done
	<-done
}

// QuitRequested reports whether a :quit/:quit!/:wq command was dispatched,
// and whether it was the forced ("discard unsaved state") variant. The
// foreground input loop polls this after every Dispatch call.
func (a *App) QuitRequested() (requested, force bool) {
	return a.quitRequested, a.quitForce
}

// Shutdown tears every component down in the reverse of New's construction
// order: sync/observer and net polling first (via the context passed to
// Run), then the download manager, then the engine, then a final flush of
// both persistence stores.
func (a *App) Shutdown() {
	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	if err := a.Downloads.Close(); err != nil {
		slog.Warn("runtime: download manager close", "err", err)
	}
	if err := a.Engine.Close(); err != nil {
		slog.Warn("runtime: engine close", "err", err)
	}
	if !a.quitForce {
		a.Library.SaveNow()
		a.Config.SaveNow()
	}
}

// expectedDownloadPaths rebuilds the Download Manager's Rehydrate map from
// the library's episode list: the path a completed download of each
// episode would have landed at, so a file left over from a previous run is
// recognised as Done without the Manager ever needing to read Episode
// fields directly (it has none for this — see internal/downloads package
// doc).
func expectedDownloadPaths(lib models.Library, baseDir string) map[models.EpisodeID]string {
	expected := make(map[models.EpisodeID]string, len(lib.Episodes))
	for _, ep := range lib.Episodes {
		feed, ok := lib.FeedByID(ep.FeedID)
		if !ok {
			continue
		}
		job := downloads.Job{
			EpisodeID:    ep.ID,
			FeedTitle:    feed.Title,
			EpisodeTitle: ep.Title,
			AudioURL:     ep.AudioURL,
		}
		expected[ep.ID] = downloads.TargetPath(baseDir, job)
	}
	return expected
}

// externalFeedParser is the seam an RSS/Atom decoding library plugs into.
// podliner itself ships no such parser — only the merge/upsert contract is
// defined here — so Fetch reports unsupported until a real implementation
// replaces this one.
type externalFeedParser struct{}

func (p *externalFeedParser) Fetch(ctx context.Context, url string) (feeds.Document, error) {
	return feeds.Document{}, fmt.Errorf("feeds: no RSS/Atom parser is wired into this build")
}
