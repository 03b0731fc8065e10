package playback

import (
	"context"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/engine"
	"github.com/podliner/podliner/internal/events"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
)

// resumeSeekDelay is how long after Play starts the one-shot resume seek
// fires, giving the engine time to actually start the stream first.
const resumeSeekDelay = 350 * time.Millisecond

// uiRefreshThrottle and persistThrottle bound how often Tick does its two
// most expensive side effects, independent of how often Tick itself is
// called.
const (
	uiRefreshThrottle = time.Second
	persistThrottle   = 3 * time.Second
	advanceRateLimit  = 500 * time.Millisecond
)

// Coordinator owns the single active playback session: it drives an
// engine.Engine, persists progress to a library.Store, and fans out
// PlaybackSnapshot/PlaybackStatus/AutoAdvanceSuggested/QueueChanged events.
// It is driven exclusively from the caller's main loop (Play and Tick are
// not safe to call concurrently with each other), but its event buses may be
// observed from other goroutines.
type Coordinator struct {
	mu  sync.Mutex
	eng engine.Engine
	lib *library.Store

	sessionCounter int64
	sess           *session
	currentEpisode models.EpisodeID

	unplayedOnly bool
	wrapAdvance  bool

	lastUIRefresh   time.Time
	lastSaveRequest time.Time
	lastAdvanceFire time.Time

	onUIRefresh func(models.PlaybackSnapshot)

	snapshotBus *events.Bus[models.PlaybackSnapshot]
	statusBus   *events.Bus[models.PlaybackStatus]
	advanceBus  *events.Bus[models.Episode]
	queueBus    *events.Bus[struct{}]
}

// NewCoordinator builds a Coordinator over the given engine and library
// store. unplayedOnly and wrapAdvance seed the same-feed next-episode
// selection policy; use SetAdvancePolicy to update them as config changes.
func NewCoordinator(eng engine.Engine, lib *library.Store, unplayedOnly, wrapAdvance bool) *Coordinator {
	return &Coordinator{
		eng:          eng,
		lib:          lib,
		unplayedOnly: unplayedOnly,
		wrapAdvance:  wrapAdvance,
		snapshotBus:  events.NewBus[models.PlaybackSnapshot](),
		statusBus:    events.NewBus[models.PlaybackStatus](),
		advanceBus:   events.NewBus[models.Episode](),
		queueBus:     events.NewBus[struct{}](),
	}
}

// Snapshots, StatusChanges, AutoAdvanceSuggestions, and QueueChanges expose
// the four event buses for Subscribe/Unsubscribe by UI, MPRIS, and sync
// observers.
func (c *Coordinator) Snapshots() *events.Bus[models.PlaybackSnapshot]   { return c.snapshotBus }
func (c *Coordinator) StatusChanges() *events.Bus[models.PlaybackStatus] { return c.statusBus }
func (c *Coordinator) AutoAdvanceSuggestions() *events.Bus[models.Episode] {
	return c.advanceBus
}
func (c *Coordinator) QueueChanges() *events.Bus[struct{}] { return c.queueBus }

// SetAdvancePolicy updates the live UnplayedOnly/WrapAdvance policy used by
// Tick's next-episode selection.
func (c *Coordinator) SetAdvancePolicy(unplayedOnly, wrapAdvance bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unplayedOnly = unplayedOnly
	c.wrapAdvance = wrapAdvance
}

// SetUIRefreshCallback registers a callback invoked at most once per second
// with the latest snapshot. Pass nil to disable it.
func (c *Coordinator) SetUIRefreshCallback(fn func(models.PlaybackSnapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUIRefresh = fn
}

// CurrentSession reports the SessionId and EpisodeId of the active session,
// or ok=false if nothing has ever played.
func (c *Coordinator) CurrentSession() (id int64, episodeID models.EpisodeID, status models.PlaybackStatus, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0, models.NilID, "", false
	}
	return c.sess.id, c.currentEpisode, c.sess.getStatus(), true
}

// Play begins a new session for ep: it increments the SessionId, trims the
// queue up to and including ep (if queued), appends a History entry, cancels
// the previous session's watchdog and pending resume seek, arms a new stall
// watchdog, schedules the resume-seek per policy, and starts the engine.
func (c *Coordinator) Play(ep models.Episode) error {
	c.mu.Lock()
	c.sessionCounter++
	id := c.sessionCounter

	if c.sess != nil {
		c.sess.disarmWatchdog()
	}
	sess := newSession(id, ep.ID)
	c.sess = sess
	c.currentEpisode = ep.ID

	lib := c.lib.Current()
	trimmed := trimQueueThrough(lib.Queue, ep.ID)
	queueChanged := len(trimmed) != len(lib.Queue)

	now := time.Now()
	c.lib.Update(func(l *models.Library) {
		if queueChanged {
			l.Queue = trimmed
		}
		l.History = l.History.Append(models.HistoryEntry{EpisodeID: ep.ID, At: now}, l.HistorySize)
	})

	knownDuration := time.Duration(ep.DurationMs) * time.Millisecond
	lastPos := time.Duration(ep.Progress.LastPosMs) * time.Millisecond
	resumeTarget, resumeOK := ResumeSeekTarget(lastPos, knownDuration)

	sess.setStatus(models.StatusLoading)
	sess.armWatchdog(func() { c.onWatchdogFire(sess) })
	c.mu.Unlock()

	c.statusBus.Publish(models.StatusLoading)
	if queueChanged {
		c.queueBus.Publish(struct{}{})
	}

	if resumeOK {
		time.AfterFunc(resumeSeekDelay, func() { c.fireResumeSeek(sess, resumeTarget) })
	}

	return c.eng.Play(context.Background(), ep.AudioURL, 0)
}

func (c *Coordinator) onWatchdogFire(sess *session) {
	c.mu.Lock()
	isCurrent := c.sess == sess
	c.mu.Unlock()
	if !isCurrent {
		return
	}
	sess.setStatus(models.StatusSlowNetwork)
	c.statusBus.Publish(models.StatusSlowNetwork)
}

func (c *Coordinator) fireResumeSeek(sess *session, target time.Duration) {
	c.mu.Lock()
	isCurrent := c.sess == sess
	c.mu.Unlock()
	if !isCurrent {
		return
	}
	if !sess.tryMarkResumeApplied() {
		return
	}
	_ = c.eng.SeekTo(context.Background(), target)
}

// Tick runs the progress-tick algorithm against the engine's current state.
// It is a no-op if no session is active.
func (c *Coordinator) Tick(state models.PlayerState) {
	c.mu.Lock()
	sess := c.sess
	epID := c.currentEpisode
	if sess == nil {
		c.mu.Unlock()
		return
	}
	now := time.Now()

	pos := state.Position
	if pos < 0 {
		pos = 0
	}
	var engineLen time.Duration
	if state.Length != nil {
		engineLen = *state.Length
	}

	if sess.getStatus() == models.StatusLoading && (pos > 0 || (state.IsPlaying && engineLen > 0)) {
		sess.disarmWatchdog()
		sess.setStatus(models.StatusPlaying)
		c.statusBus.Publish(models.StatusPlaying)
	}

	lib := c.lib.Current()
	ep, found := lib.EpisodeByID(epID)
	if !found {
		c.mu.Unlock()
		return
	}

	knownDuration := time.Duration(ep.DurationMs) * time.Millisecond
	effLen := EffectiveLength(engineLen, knownDuration, pos)
	newlyPlayed := !ep.ManuallyMarkedPlayed && ShouldMarkPlayed(effLen, pos)
	shouldPersist := newlyPlayed || now.Sub(c.lastSaveRequest) >= persistThrottle

	if shouldPersist {
		c.lastSaveRequest = now
		c.lib.Update(func(l *models.Library) {
			for i := range l.Episodes {
				if l.Episodes[i].ID != epID {
					continue
				}
				if effLenMs := int64(effLen / time.Millisecond); effLenMs > l.Episodes[i].DurationMs {
					l.Episodes[i].DurationMs = effLenMs
				}
				l.Episodes[i].Progress.LastPosMs = int64(pos / time.Millisecond)
				if newlyPlayed {
					l.Episodes[i].ManuallyMarkedPlayed = true
					at := now
					l.Episodes[i].Progress.LastPlayedAt = &at
				}
				break
			}
		})
	}

	doUIRefresh := now.Sub(c.lastUIRefresh) >= uiRefreshThrottle
	if doUIRefresh {
		c.lastUIRefresh = now
	}
	onUIRefresh := c.onUIRefresh

	epIDCopy := epID
	snap := models.NewSnapshot(sess.id, &epIDCopy, pos, effLen, state.IsPlaying, state.Speed, now)

	var advanceEp models.Episode
	fireAdvance := false
	queueChanged := false
	endedNow := false

	if IsEndReached(engineLen, effLen, pos, state.IsPlaying) && sess.tryMarkEndHandled() {
		sess.setStatus(models.StatusEnded)
		endedNow = true
		if now.Sub(c.lastAdvanceFire) >= advanceRateLimit {
			if next, rest, ok := NextEpisode(c.lib.Current(), epID, c.unplayedOnly, c.wrapAdvance); ok {
				advanceEp = next
				fireAdvance = true
				c.lastAdvanceFire = now
				if len(rest) != len(lib.Queue) {
					queueChanged = true
					c.lib.Update(func(l *models.Library) { l.Queue = rest })
				}
			}
		}
	}
	c.mu.Unlock()

	c.snapshotBus.Publish(snap)
	if endedNow {
		c.statusBus.Publish(models.StatusEnded)
	}
	if doUIRefresh && onUIRefresh != nil {
		onUIRefresh(snap)
	}
	if fireAdvance {
		c.advanceBus.Publish(advanceEp)
	}
	if queueChanged {
		c.queueBus.Publish(struct{}{})
	}
}

// trimQueueThrough drops entries from the front of q up to and including
// id, if id appears in q. If id is not queued, q is returned unchanged.
func trimQueueThrough(q models.Queue, id models.EpisodeID) models.Queue {
	for i, qid := range q {
		if qid == id {
			return append(models.Queue{}, q[i+1:]...)
		}
	}
	return q
}
