package downloads

import (
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/podliner/podliner/internal/models"
)

// Rehydrate seeds the Manager's status map from files already on disk —
// called once at startup with the path a completed download of each
// episode would have (internal/runtime derives it with TargetPath from the
// library's feed and episode titles; the library stores no download path).
// A path that no longer exists is left untouched (None), so a deleted
// download doesn't resurrect as Done.
func (m *Manager) Rehydrate(expected map[models.EpisodeID]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, path := range expected {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadDone, LocalPath: path})
		}
	}
}

// watchDirLocked adds dir to the fsnotify watcher once. Must be called with
// m.mu held.
func (m *Manager) watchDirLocked(dir string) {
	if m.watcher == nil || dir == "" || m.watchedDirs[dir] {
		return
	}
	if err := m.watcher.Add(dir); err != nil {
		slog.Warn("downloads: could not watch directory", "dir", dir, "err", err)
		return
	}
	m.watchedDirs[dir] = true
}

// watchLoop invalidates a cached Done status the moment its backing file is
// removed or renamed away, so IsDownloaded never needs to wait for its next
// call to notice — it just confirms what the watcher already flipped.
func (m *Manager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				m.invalidatePath(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("downloads: watcher error", "err", err)
		}
	}
}

func (m *Manager) invalidatePath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, st := range m.statuses {
		if st.State == models.DownloadDone && st.LocalPath == path {
			m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadNone})
		}
	}
}
