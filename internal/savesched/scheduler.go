// Package savesched coalesces save requests from many producers into at
// most one in-flight write plus at most one pending follow-up, so bursts of
// mutations never queue up an unbounded number of writes.
package savesched

import (
	"sync"
	"time"
)

// Scheduler debounces calls to a save function. RequestSave(false) starts
// (or restarts) a debounce timer; RequestSave(true) bypasses the timer and
// joins or starts a save immediately. A save already running when another
// request arrives marks a single follow-up save pending — it runs once the
// current save returns, never queued more than once.
type Scheduler struct {
	debounce time.Duration
	saveFn   func() error
	onError  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	pending bool
	done    chan struct{} // closed when the current run (and any pending follow-up) finishes
}

// New builds a Scheduler. saveFn performs the actual write and is never
// called concurrently with itself. onError is invoked (off the caller's
// goroutine) whenever saveFn returns an error; it may be nil.
func New(debounce time.Duration, saveFn func() error, onError func(error)) *Scheduler {
	return &Scheduler{
		debounce: debounce,
		saveFn:   saveFn,
		onError:  onError,
	}
}

// RequestSave schedules a save. If flush is true, it starts (or joins) a
// save immediately, skipping the debounce window, and blocks until that
// save has completed. Otherwise it (re)starts the debounce timer and
// returns without blocking.
func (s *Scheduler) RequestSave(flush bool) {
	if !flush {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.debounce, func() { s.trigger() })
		s.mu.Unlock()
		return
	}

	wait := s.trigger()
	<-wait
}

// Flush is equivalent to RequestSave(true): it cancels any pending debounce
// timer and blocks until a save has completed.
func (s *Scheduler) Flush() {
	s.RequestSave(true)
}

// trigger starts a save if none is running, or marks a follow-up pending if
// one already is. It returns a channel that closes once the save (and any
// pending follow-up it absorbs) has finished.
func (s *Scheduler) trigger() chan struct{} {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.running {
		s.pending = true
		wait := s.done
		s.mu.Unlock()
		return wait
	}
	s.running = true
	s.done = make(chan struct{})
	wait := s.done
	s.mu.Unlock()

	go s.runLoop()
	return wait
}

func (s *Scheduler) runLoop() {
	for {
		err := s.saveFn()
		if err != nil && s.onError != nil {
			s.onError(err)
		}

		s.mu.Lock()
		if s.pending {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		done := s.done
		s.done = nil
		s.mu.Unlock()
		close(done)
		return
	}
}
