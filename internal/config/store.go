// Package config persists AppConfig — the user's preferences document — to
// appsettings.json with debounced, atomic writes.
package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
	"github.com/podliner/podliner/internal/persist"
	"github.com/podliner/podliner/internal/savesched"
)

// debounceDelay is the ConfigStore's save-coalescing window.
const debounceDelay = time.Second

// Store owns appsettings.json: load-with-defaults-on-corruption, debounced
// save, immediate flush, and read-only detection after a failed write.
type Store struct {
	path string

	mu             sync.Mutex
	current        models.AppConfig
	readOnly       bool
	readOnlyReason string

	sched *savesched.Scheduler
}

// New builds a Store backed by the file at path. Call Load before using
// Current.
func New(path string) *Store {
	s := &Store{path: path, current: models.DefaultAppConfig()}
	s.sched = savesched.New(debounceDelay, s.writeCurrent, func(err error) {
		slog.Error("config: save failed", "path", path, "err", err)
	})
	return s
}

// Path returns the file path this store persists to.
func (s *Store) Path() string { return s.path }

// Load reads appsettings.json, normalising it. A missing file yields
// DefaultAppConfig; a corrupt file logs a warning and also yields defaults
// — Load never fails the caller's startup.
func (s *Store) Load() models.AppConfig {
	var cfg models.AppConfig
	existed, err := persist.LoadJSON(s.path, &cfg)
	if err != nil {
		slog.Warn("config: corrupt appsettings.json, using defaults", "path", s.path, "err", err)
		cfg = models.DefaultAppConfig()
	} else if !existed {
		cfg = models.DefaultAppConfig()
	}
	cfg.Normalize()

	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return cfg
}

// Current returns a copy of the in-memory config.
func (s *Store) Current() models.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to a copy of the current config, normalises it, stores
// it, and requests a debounced save. It returns the resulting config.
func (s *Store) Update(fn func(*models.AppConfig)) models.AppConfig {
	s.mu.Lock()
	next := s.current
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

// ReadOnly reports whether the store is in read-only mode (a prior save
// failed with a permission error) and why.
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

// writeCurrent is the Scheduler's save function: it snapshots the current
// config and writes it, flipping the store read-only on a permission
// failure rather than retrying forever.
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
