// Package library persists the Library document — feeds, episodes, queue,
// and history — to library.json with debounced, atomic writes and
// normalisation on load.
package library

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
	"github.com/podliner/podliner/internal/persist"
	"github.com/podliner/podliner/internal/savesched"
)

// debounceDelay is the LibraryStore's save-coalescing window.
const debounceDelay = 2500 * time.Millisecond

// Store owns library.json.
type Store struct {
	path string

	mu             sync.Mutex
	current        models.Library
	readOnly       bool
	readOnlyReason string

	sched *savesched.Scheduler
}

// New builds a Store backed by the file at path. Call Load before using
// Current.
func New(path string) *Store {
	s := &Store{path: path, current: models.DefaultLibrary()}
	s.sched = savesched.New(debounceDelay, s.writeCurrent, func(err error) {
		slog.Error("library: save failed", "path", path, "err", err)
	})
	return s
}

// Path returns the file path this store persists to.
func (s *Store) Path() string { return s.path }

// Load reads library.json and normalises it: dedupe by id, discard orphan
// episodes, re-clamp progress, filter queue/history against existing
// episode ids. A missing or corrupt file yields DefaultLibrary.
func (s *Store) Load() models.Library {
	var lib models.Library
	existed, err := persist.LoadJSON(s.path, &lib)
	if err != nil {
		slog.Warn("library: corrupt library.json, using defaults", "path", s.path, "err", err)
		lib = models.DefaultLibrary()
	} else if !existed {
		lib = models.DefaultLibrary()
	}
	lib.Normalize()

	s.mu.Lock()
	s.current = lib
	s.mu.Unlock()
	return lib
}

// Current returns a copy of the in-memory library.
func (s *Store) Current() models.Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to a copy of the current library, normalises it, stores
// it, and requests a debounced save. It returns the resulting library.
//
// fn receives a pointer to a copy whose Feeds, Episodes, Queue and History
// slices are fresh clones, so fn may mutate elements in place without
// touching the stored library, a copy an earlier Current returned, or a
// snapshot that a save is still marshalling outside the lock.
func (s *Store) Update(fn func(*models.Library)) models.Library {
	s.mu.Lock()
	next := s.current
	next.Feeds = slices.Clone(s.current.Feeds)
	next.Episodes = slices.Clone(s.current.Episodes)
	next.Queue = slices.Clone(s.current.Queue)
	next.History = slices.Clone(s.current.History)
	fn(&next)
	next.Normalize()
	s.current = next
	s.mu.Unlock()

	s.requestSave(false)
	return next
}

// SaveNow flushes any pending save immediately.
func (s *Store) SaveNow() {
	s.requestSave(true)
}

// ReadOnly reports whether the store is in read-only mode and why.
func (s *Store) ReadOnly() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly, s.readOnlyReason
}

func (s *Store) requestSave(flush bool) {
	s.mu.Lock()
	ro := s.readOnly
	s.mu.Unlock()
	if ro {
		return
	}
	s.sched.RequestSave(flush)
}

func (s *Store) writeCurrent() error {
	s.mu.Lock()
	if s.readOnly {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.current
	s.mu.Unlock()

	err := persist.WriteJSON(s.path, snapshot)
	if err != nil && persist.IsPermissionError(err) {
		s.mu.Lock()
		s.readOnly = true
		s.readOnlyReason = err.Error()
		s.mu.Unlock()
	}
	return err
}
