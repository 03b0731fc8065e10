package playback

import (
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
)

// session tracks the bookkeeping for one Play call: its SessionId, the
// watchdog that detects a stalled start, and the one-shot flags (resume
// seek, end-handled) that must never fire twice or after a newer session
// has begun.
type session struct {
	mu sync.Mutex

	id        int64
	episodeID models.EpisodeID
	status    models.PlaybackStatus

	watchdog      *time.Timer
	resumeApplied bool
	endHandled    bool
}

const stallWatchdogDelay = 5 * time.Second

func newSession(id int64, episodeID models.EpisodeID) *session {
	return &session{id: id, episodeID: episodeID, status: models.StatusLoading}
}

// armWatchdog starts the stall watchdog; onFire runs only if the watchdog
// is not stopped first (by observed progress) and the session is still
// current when it fires.
func (s *session) armWatchdog(onFire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdog = time.AfterFunc(stallWatchdogDelay, onFire)
}

func (s *session) disarmWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
}

func (s *session) setStatus(status models.PlaybackStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *session) getStatus() models.PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// tryMarkResumeApplied returns true the first time it's called on this
// session (and false on every call after), implementing "one-shot, guarded
// by SessionId".
func (s *session) tryMarkResumeApplied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resumeApplied {
		return false
	}
	s.resumeApplied = true
	return true
}

// tryMarkEndHandled returns true only the first time end-of-episode is
// observed for this session.
func (s *session) tryMarkEndHandled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endHandled {
		return false
	}
	s.endHandled = true
	return true
}
