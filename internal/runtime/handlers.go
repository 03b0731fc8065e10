package runtime

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/podliner/podliner/internal/apperr"
	"github.com/podliner/podliner/internal/command"
	"github.com/podliner/podliner/internal/engine"
	"github.com/podliner/podliner/internal/models"
	"github.com/podliner/podliner/internal/opml"
)

// registerHandlers wires every backend-meaningful command Kind to its
// handler. Kinds with no backend component to own them (Search, Goto,
// Sort, Filter, History, Theme, Logs, OSD, Jump, Replay, Open, Copy,
// AudioPlayer, PlaySource) are left unregistered: they select or render
// state that only a UI tracks, and no such layer exists in this module.
func (a *App) registerHandlers() {
	a.Dispatcher.Register(&seekHandler{a})
	a.Dispatcher.Register(&volHandler{a})
	a.Dispatcher.Register(&speedHandler{a})
	a.Dispatcher.Register(&queueHandler{a})
	a.Dispatcher.Register(&addHandler{a})
	a.Dispatcher.Register(&refreshHandler{a})
	a.Dispatcher.Register(&removeFeedHandler{a})
	a.Dispatcher.Register(&opmlHandler{a})
	a.Dispatcher.Register(&syncHandler{a})
	a.Dispatcher.Register(&saveHandler{a})
	a.Dispatcher.Register(&persistenceHandler{a})
	a.Dispatcher.Register(&netHandler{a})
	a.Dispatcher.Register(&engineHandler{a})
	a.Dispatcher.Register(&lifecycleHandler{a})
}

// currentEpisode returns the episode id of the active playback session, if
// any. Several command families (:queue, :save) operate on "the current
// episode" — in a headless runtime with no selection-tracking UI layer,
// that is defined as whatever the Playback Coordinator last started.
func (a *App) currentEpisode() (models.EpisodeID, bool) {
	_, epID, _, ok := a.Coordinator.CurrentSession()
	if !ok {
		return models.NilID, false
	}
	return epID, true
}

type seekHandler struct{ app *App }

func (h *seekHandler) Kinds() []command.Kind { return []command.Kind{command.KindSeek} }

func (h *seekHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "seek", "missing argument")
	}
	target, err := command.ParseSeek(cmd.Args[0])
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "seek", "parsing argument", err)
	}
	state := h.app.Engine.State()
	var known time.Duration
	if state.Length != nil {
		known = *state.Length
	}
	resolved := target.Resolve(state.Position, known)
	return h.app.Engine.SeekTo(context.Background(), resolved)
}

type volHandler struct{ app *App }

func (h *volHandler) Kinds() []command.Kind { return []command.Kind{command.KindVol} }

func (h *volHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "vol", "missing argument")
	}
	current := h.app.Engine.State().Volume
	vol, err := command.ParseVolume(cmd.Args[0], current)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "vol", "parsing argument", err)
	}
	if err := h.app.Engine.SetVolume(context.Background(), vol); err != nil {
		return err
	}
	h.app.Config.Update(func(c *models.AppConfig) { c.Volume = vol })
	return nil
}

type speedHandler struct{ app *App }

func (h *speedHandler) Kinds() []command.Kind { return []command.Kind{command.KindSpeed} }

func (h *speedHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "speed", "missing argument")
	}
	current := h.app.Engine.State().Speed
	speed, err := command.ParseSpeed(cmd.Args[0], current)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "speed", "parsing argument", err)
	}
	if err := h.app.Engine.SetSpeed(context.Background(), speed); err != nil {
		return err
	}
	h.app.Config.Update(func(c *models.AppConfig) { c.Speed = speed })
	return nil
}

type queueHandler struct{ app *App }

func (h *queueHandler) Kinds() []command.Kind { return []command.Kind{command.KindQueue} }

func (h *queueHandler) Handle(cmd command.Command) error {
	op, move, err := command.ParseQueueSub(cmd.Args)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "queue", "parsing subcommand", err)
	}

	switch op {
	case command.QueueAdd, command.QueueToggle, command.QueueRemove:
		epID, ok := h.app.currentEpisode()
		if !ok {
			return apperr.New(apperr.KindInvalidArgument, "queue", "no episode is currently playing")
		}
		h.app.Library.Update(func(l *models.Library) {
			idx := indexOf(l.Queue, epID)
			switch op {
			case command.QueueAdd:
				l.Queue = append(l.Queue, epID)
			case command.QueueToggle:
				if idx >= 0 {
					l.Queue = removeAt(l.Queue, idx)
				} else {
					l.Queue = append(l.Queue, epID)
				}
			case command.QueueRemove:
				if idx >= 0 {
					l.Queue = removeAt(l.Queue, idx)
				}
			}
		})
	case command.QueueClear:
		h.app.Library.Update(func(l *models.Library) { l.Queue = models.Queue{} })
	case command.QueueShuffle:
		h.app.Library.Update(func(l *models.Library) {
			rand.Shuffle(len(l.Queue), func(i, j int) { l.Queue[i], l.Queue[j] = l.Queue[j], l.Queue[i] })
		})
	case command.QueueUniq:
		h.app.Library.Update(func(l *models.Library) { l.Queue = dedupe(l.Queue) })
	case command.QueueMove:
		epID, ok := h.app.currentEpisode()
		if !ok {
			return apperr.New(apperr.KindInvalidArgument, "queue", "no episode is currently playing")
		}
		h.app.Library.Update(func(l *models.Library) {
			l.Queue = moveWithinQueue(l.Queue, epID, move)
		})
	}
	h.app.Coordinator.QueueChanges().Publish(struct{}{})
	return nil
}

func indexOf(q models.Queue, id models.EpisodeID) int {
	for i, e := range q {
		if e == id {
			return i
		}
	}
	return -1
}

func removeAt(q models.Queue, idx int) models.Queue {
	out := make(models.Queue, 0, len(q)-1)
	out = append(out, q[:idx]...)
	out = append(out, q[idx+1:]...)
	return out
}

func dedupe(q models.Queue) models.Queue {
	seen := make(map[models.EpisodeID]bool, len(q))
	out := make(models.Queue, 0, len(q))
	for _, e := range q {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func moveWithinQueue(q models.Queue, id models.EpisodeID, dir command.MoveDirection) models.Queue {
	idx := indexOf(q, id)
	if idx < 0 {
		return q
	}
	out := append(models.Queue{}, q...)
	switch dir {
	case command.MoveTop:
		out = removeAt(out, idx)
		out = append(models.Queue{id}, out...)
	case command.MoveBottom:
		out = removeAt(out, idx)
		out = append(out, id)
	case command.MoveUp:
		if idx > 0 {
			out[idx-1], out[idx] = out[idx], out[idx-1]
		}
	case command.MoveDown:
		if idx < len(out)-1 {
			out[idx+1], out[idx] = out[idx], out[idx+1]
		}
	}
	return out
}

type addHandler struct{ app *App }

func (h *addHandler) Kinds() []command.Kind { return []command.Kind{command.KindAdd} }

func (h *addHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "add", "missing feed URL")
	}
	_, err := h.app.Feeds.AddFeed(context.Background(), cmd.Args[0])
	return err
}

type refreshHandler struct{ app *App }

func (h *refreshHandler) Kinds() []command.Kind { return []command.Kind{command.KindRefresh} }

func (h *refreshHandler) Handle(cmd command.Command) error {
	lib := h.app.Library.Current()
	if len(cmd.Args) == 0 {
		var firstErr error
		for _, f := range lib.Feeds {
			if err := h.app.Feeds.RefreshFeed(context.Background(), f); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, f := range lib.Feeds {
		if models.SameURL(f.URL, cmd.Args[0]) {
			return h.app.Feeds.RefreshFeed(context.Background(), f)
		}
	}
	return apperr.New(apperr.KindNotFound, "refresh", "no subscribed feed matches "+cmd.Args[0])
}

type removeFeedHandler struct{ app *App }

func (h *removeFeedHandler) Kinds() []command.Kind { return []command.Kind{command.KindRemoveFeed} }

func (h *removeFeedHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "remove-feed", "missing feed URL")
	}
	lib := h.app.Library.Current()
	for _, f := range lib.Feeds {
		if models.SameURL(f.URL, cmd.Args[0]) {
			h.app.Feeds.RemoveFeed(f.ID)
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "remove-feed", "no subscribed feed matches "+cmd.Args[0])
}

// opmlHandler handles ":opml import <path> [--update-titles]". Export and
// the OPML document decode/encode itself are an external collaborator's
// job; this handler only runs the planner against entries an external
// decoder already produced and is therefore a no-op placeholder until one
// is wired in, beyond validating the subcommand.
type opmlHandler struct{ app *App }

func (h *opmlHandler) Kinds() []command.Kind { return []command.Kind{command.KindOPML} }

func (h *opmlHandler) Handle(cmd command.Command) error {
	act, err := command.ParseOPML(cmd.Args)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, "opml", "parsing argument", err)
	}
	if !act.Import {
		return apperr.New(apperr.KindUnsupported, "opml", "export requires an external OPML encoder")
	}
	return apperr.New(apperr.KindUnsupported, "opml", "import requires an external OPML decoder to produce entries for "+act.Path)
}

// ExecuteOPMLPlan applies plan against the library: New entries are
// subscribed via the Feed Service, Duplicate entries with UpdateTitle set
// have their stored title refreshed if updateTitles was requested, and
// Invalid entries are skipped. It is exported so an external OPML decoder
// can call Plan itself and hand the result here, bypassing opmlHandler's
// placeholder.
func (a *App) ExecuteOPMLPlan(ctx context.Context, plan []opml.PlanItem, updateTitles bool) error {
	var firstErr error
	for _, item := range plan {
		switch item.Classification {
		case opml.New:
			if _, err := a.Feeds.AddFeed(ctx, item.Entry.URL); err != nil && firstErr == nil {
				firstErr = err
			}
		case opml.Duplicate:
			if updateTitles && item.UpdateTitle && item.ExistingFeedID != nil {
				a.Library.Update(func(l *models.Library) {
					for i := range l.Feeds {
						if l.Feeds[i].ID == *item.ExistingFeedID {
							l.Feeds[i].Title = item.Entry.Title
							break
						}
					}
				})
			}
		case opml.Invalid:
			// skipped by design
		}
	}
	return firstErr
}

type syncHandler struct{ app *App }

func (h *syncHandler) Kinds() []command.Kind { return []command.Kind{command.KindSync} }

func (h *syncHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "sync", "missing subcommand")
	}
	switch strings.ToLower(cmd.Args[0]) {
	case "login":
		if len(cmd.Args) < 4 {
			return apperr.New(apperr.KindInvalidArgument, "sync login", "usage: sync login <url> <user> <pass> [device]")
		}
		deviceID := ""
		if len(cmd.Args) > 4 {
			deviceID = cmd.Args[4]
		}
		return h.app.Sync.Login(cmd.Args[1], cmd.Args[2], cmd.Args[3], deviceID)
	case "pull":
		return h.app.Sync.Pull(context.Background(),
			func(url string) { h.app.addFeedFromSync(url) },
			func(url string) { h.app.removeFeedFromSync(url) },
		)
	case "push":
		lib := h.app.Library.Current()
		urls := make([]string, 0, len(lib.Feeds))
		for _, f := range lib.Feeds {
			urls = append(urls, f.URL)
		}
		return h.app.Sync.Push(context.Background(), urls)
	default:
		return apperr.New(apperr.KindInvalidArgument, "sync", "unknown subcommand "+cmd.Args[0])
	}
}

func (a *App) addFeedFromSync(url string) {
	_, _ = a.Feeds.AddFeed(context.Background(), url)
}

func (a *App) removeFeedFromSync(url string) {
	lib := a.Library.Current()
	for _, f := range lib.Feeds {
		if models.SameURL(f.URL, url) {
			a.Feeds.RemoveFeed(f.ID)
			return
		}
	}
}

// saveHandler handles ":save" (mark the current episode saved) and
// ":save -" (unset it). It always applies the flag unconditionally rather
// than short-circuiting when already in the target state, so a caller's OSD
// layer (if any) gets a uniform signal to react to either way.
type saveHandler struct{ app *App }

func (h *saveHandler) Kinds() []command.Kind { return []command.Kind{command.KindSave} }

func (h *saveHandler) Handle(cmd command.Command) error {
	epID, ok := h.app.currentEpisode()
	if !ok {
		return apperr.New(apperr.KindInvalidArgument, "save", "no episode is currently playing")
	}
	saved := true
	if len(cmd.Args) > 0 && cmd.Args[0] == "-" {
		saved = false
	}
	h.app.Library.Update(func(l *models.Library) {
		for i := range l.Episodes {
			if l.Episodes[i].ID == epID {
				l.Episodes[i].Saved = saved
				break
			}
		}
	})
	return nil
}

// persistenceHandler handles :write and :wq. :quit/:quit! are lifecycle,
// not persistence, and are handled separately.
type persistenceHandler struct{ app *App }

func (h *persistenceHandler) Kinds() []command.Kind {
	return []command.Kind{command.KindWrite, command.KindWriteQuit}
}

func (h *persistenceHandler) Handle(cmd command.Command) error {
	h.app.Config.SaveNow()
	h.app.Library.SaveNow()
	if cmd.Kind == command.KindWriteQuit {
		h.app.quitRequested = true
	}
	return nil
}

type netHandler struct{ app *App }

func (h *netHandler) Kinds() []command.Kind { return []command.Kind{command.KindNet} }

func (h *netHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "net", "usage: net on|off")
	}
	switch strings.ToLower(cmd.Args[0]) {
	case "off":
		h.app.Net.SetManualOffline(true)
	case "on":
		h.app.Net.SetManualOffline(false)
	default:
		return apperr.New(apperr.KindInvalidArgument, "net", "usage: net on|off")
	}
	return nil
}

type engineHandler struct{ app *App }

func (h *engineHandler) Kinds() []command.Kind { return []command.Kind{command.KindEngine} }

func (h *engineHandler) Handle(cmd command.Command) error {
	if len(cmd.Args) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "engine", "missing engine name")
	}
	pref := models.EnginePreference(strings.ToLower(cmd.Args[0]))
	if !models.ValidEnginePreference(pref) {
		return apperr.New(apperr.KindInvalidArgument, "engine", "unknown engine "+cmd.Args[0])
	}
	next, kind, err := engine.Select(pref, "")
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "engine", "selecting replacement engine", err)
	}
	ctx := context.Background()
	if err := h.app.Engine.SwapTo(ctx, next, nil); err != nil {
		return err
	}
	h.app.EngineKind = kind
	h.app.Config.Update(func(c *models.AppConfig) { c.EffectiveEngine = models.EnginePreference(kind) })
	return nil
}

type lifecycleHandler struct{ app *App }

func (h *lifecycleHandler) Kinds() []command.Kind {
	return []command.Kind{command.KindQuit, command.KindQuitForce}
}

func (h *lifecycleHandler) Handle(cmd command.Command) error {
	h.app.quitRequested = true
	h.app.quitForce = cmd.Kind == command.KindQuitForce
	return nil
}
