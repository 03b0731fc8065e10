// Package downloads implements the Download Manager: a persisted-by-caller
// FIFO queue of episode ids, a side map of per-episode DownloadStatus, and a
// single worker that fetches episodes to a sanitised on-disk layout.
//
// DownloadStatus itself is never written to library.json — the Manager is
// the sole owner of download state, rebuilt from whatever files already
// exist under baseDir at startup via Rehydrate.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/podliner/podliner/internal/models"
)

// Job describes what a queued download needs: enough to build the target
// path and issue the HTTP request. The caller (feed/library layer) supplies
// it at Enqueue time rather than the Manager looking episodes up itself, so
// this package has no dependency on the library store.
type Job struct {
	EpisodeID    models.EpisodeID
	FeedTitle    string
	EpisodeTitle string
	AudioURL     string
}

// ErrorKind classifies why a download attempt failed, per the fails-with
// taxonomy: IoError is fatal for that attempt, Network is retryable,
// PathTooLong is non-retryable unless a shorter sanitised form is possible,
// Canceled is terminal.
type ErrorKind string

const (
	ErrorIO          ErrorKind = "io_error"
	ErrorNetwork     ErrorKind = "network"
	ErrorPathTooLong ErrorKind = "path_too_long"
	ErrorCanceled    ErrorKind = "canceled"
)

// downloadError pairs a terminal error with its classification.
type downloadError struct {
	kind ErrorKind
	err  error
}

func (e *downloadError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }
func (e *downloadError) Unwrap() error { return e.err }

// globalRatePerSecond and globalBurst bound how fast the worker issues
// outbound requests, so a long download queue never hammers a podcast
// host — a single shared token bucket across every download attempt.
const (
	globalRatePerSecond = 4
	globalBurst         = 4
)

// Manager owns the download queue, side-map, and the single worker
// processing it.
type Manager struct {
	baseDir string
	client  *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	queue    []models.EpisodeID
	jobs     map[models.EpisodeID]Job
	statuses map[models.EpisodeID]models.DownloadStatus

	running       bool
	currentID     models.EpisodeID
	currentCancel context.CancelFunc
	workerDone    chan struct{}

	watcher     *fsnotify.Watcher
	watchedDirs map[string]bool

	onChange func(models.EpisodeID, models.DownloadStatus)
}

// New builds a Manager rooted at baseDir. A nil client gets a default one
// with no blanket timeout — Cancel and the caller's context are what bound
// an individual transfer's lifetime.
func New(baseDir string, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{}
	}
	m := &Manager{
		baseDir:     baseDir,
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(globalRatePerSecond), globalBurst),
		jobs:        make(map[models.EpisodeID]Job),
		statuses:    make(map[models.EpisodeID]models.DownloadStatus),
		watchedDirs: make(map[string]bool),
	}
	if w, err := fsnotify.NewWatcher(); err != nil {
		slog.Warn("downloads: could not create fsnotify watcher", "err", err)
	} else {
		m.watcher = w
		go m.watchLoop()
	}
	return m
}

// SetOnChange registers a callback fired (off the caller's goroutine)
// whenever a download's status changes. Pass nil to disable it.
func (m *Manager) SetOnChange(fn func(models.EpisodeID, models.DownloadStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Enqueue appends job to the queue tail unless it is already queued or
// already Done.
func (m *Manager) Enqueue(job Job) {
	m.mu.Lock()
	st := m.statuses[job.EpisodeID]
	alreadyQueued := m.queuedLocked(job.EpisodeID)
	if alreadyQueued || st.State == models.DownloadDone {
		m.mu.Unlock()
		return
	}
	m.jobs[job.EpisodeID] = job
	m.queue = append(m.queue, job.EpisodeID)
	m.setStatusLocked(job.EpisodeID, models.DownloadStatus{State: models.DownloadQueued})
	m.mu.Unlock()
	m.EnsureRunning()
}

// ForceFront moves job to the head of the queue, enqueuing it if absent.
// A Running download is left alone — it cannot be reordered, only Canceled.
func (m *Manager) ForceFront(job Job) {
	m.mu.Lock()
	if m.currentID == job.EpisodeID && m.currentCancel != nil {
		m.mu.Unlock()
		return
	}
	m.queue = removeID(m.queue, job.EpisodeID)
	m.jobs[job.EpisodeID] = job
	m.queue = append([]models.EpisodeID{job.EpisodeID}, m.queue...)
	m.setStatusLocked(job.EpisodeID, models.DownloadStatus{State: models.DownloadQueued})
	m.mu.Unlock()
	m.EnsureRunning()
}

// Cancel removes id from the queue (if queued) and aborts it if currently
// Running, transitioning it to Canceled either way. Partial files are left
// on disk — only a fresh Enqueue or ForceFront of the same episode
// overwrites them (RetryFailed does not pick up Canceled entries).
func (m *Manager) Cancel(id models.EpisodeID) {
	m.mu.Lock()
	m.queue = removeID(m.queue, id)
	if m.currentID == id && m.currentCancel != nil {
		m.currentCancel()
	}
	m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadCanceled})
	m.mu.Unlock()
}

// GetState reads the current DownloadStatus for id.
func (m *Manager) GetState(id models.EpisodeID) (models.DownloadStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[id]
	return st, ok
}

// IsDownloaded reports whether id's download is Done, has a LocalPath, and
// that file still exists on disk — the sole source of truth for
// "downloaded", never a persisted Episode flag. A vanished file flips the
// cached state back to None as a side effect.
func (m *Manager) IsDownloaded(id models.EpisodeID) bool {
	m.mu.Lock()
	st, ok := m.statuses[id]
	m.mu.Unlock()
	if !ok || st.State != models.DownloadDone || st.LocalPath == "" {
		return false
	}
	if _, err := os.Stat(st.LocalPath); err != nil {
		m.mu.Lock()
		m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadNone})
		m.mu.Unlock()
		return false
	}
	return true
}

// RetryFailed re-enqueues every entry currently in the Failed state.
func (m *Manager) RetryFailed() {
	m.mu.Lock()
	var retry []models.EpisodeID
	for id, st := range m.statuses {
		if st.State == models.DownloadFailed {
			retry = append(retry, id)
		}
	}
	for _, id := range retry {
		if !m.queuedLocked(id) {
			m.queue = append(m.queue, id)
			m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadQueued})
		}
	}
	m.mu.Unlock()
	if len(retry) > 0 {
		m.EnsureRunning()
	}
}

// EnsureRunning starts the worker goroutine if it is not already running.
func (m *Manager) EnsureRunning() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.workerDone = make(chan struct{})
	done := m.workerDone
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.runWorker(context.Background())
	}()
}

// Close stops the worker (aborting any in-flight transfer) and the fsnotify
// watcher. It does not wait for a graceful drain of the queue.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.currentCancel != nil {
		m.currentCancel()
	}
	m.queue = nil
	m.mu.Unlock()

	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) queuedLocked(id models.EpisodeID) bool {
	for _, q := range m.queue {
		if q == id {
			return true
		}
	}
	return m.currentID == id && m.currentCancel != nil
}

func removeID(q []models.EpisodeID, id models.EpisodeID) []models.EpisodeID {
	out := make([]models.EpisodeID, 0, len(q))
	for _, x := range q {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// setStatusLocked merges partial into the existing status for id (zero
// fields in partial do not clobber non-zero existing ones, except State
// which is always applied), stamps UpdatedAt, and fires onChange.
// Must be called with m.mu held.
func (m *Manager) setStatusLocked(id models.EpisodeID, partial models.DownloadStatus) {
	cur := m.statuses[id]
	cur.State = partial.State
	if partial.LocalPath != "" {
		cur.LocalPath = partial.LocalPath
	}
	if partial.Err != "" {
		cur.Err = partial.Err
	} else if partial.State != models.DownloadFailed {
		cur.Err = ""
	}
	if partial.BytesReceived > 0 {
		cur.BytesReceived = partial.BytesReceived
	}
	if partial.TotalBytes != nil {
		cur.TotalBytes = partial.TotalBytes
	}
	if partial.State == models.DownloadQueued {
		cur.BytesReceived = 0
		cur.TotalBytes = nil
	}
	now := time.Now()
	cur.UpdatedAt = &now
	m.statuses[id] = cur

	if m.onChange != nil {
		onChange := m.onChange
		go onChange(id, cur)
	}
	if cur.State == models.DownloadDone && cur.LocalPath != "" {
		m.watchDirLocked(filepath.Dir(cur.LocalPath))
	}
}

func (m *Manager) runWorker(ctx context.Context) {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.running = false
			m.mu.Unlock()
			return
		}
		id := m.queue[0]
		m.queue = m.queue[1:]
		job := m.jobs[id]

		jobCtx, cancel := context.WithCancel(ctx)
		m.currentID = id
		m.currentCancel = cancel
		m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadRunning})
		m.mu.Unlock()

		localPath, err := m.download(jobCtx, job)

		m.mu.Lock()
		m.currentCancel = nil
		m.currentID = models.NilID
		switch {
		case err == nil:
			m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadDone, LocalPath: localPath})
		case errors.Is(err, context.Canceled):
			// Cancel() already recorded the Canceled state.
		default:
			var de *downloadError
			msg := err.Error()
			if errors.As(err, &de) {
				msg = de.Error()
			}
			m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadFailed, Err: msg})
		}
		m.mu.Unlock()
	}
}

// TargetPath computes the sanitised on-disk path a download of job would
// land at under baseDir, without touching the filesystem — exposed so a
// caller can rebuild the Rehydrate map from the library store's episode
// list at startup, matching exactly what a completed download produced.
func TargetPath(baseDir string, job Job) string {
	dir := filepath.Join(baseDir, SanitizeComponent(job.FeedTitle))
	name := SanitizeComponent(job.EpisodeTitle) + extensionFor(job.AudioURL)
	return filepath.Join(dir, name)
}

// download fetches job.AudioURL to a sanitised path under baseDir,
// reporting progress into the status map as it goes. It returns the final
// local path on success.
func (m *Manager) download(ctx context.Context, job Job) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", err
	}

	target := TargetPath(m.baseDir, job)
	dir := filepath.Dir(target)

	if err := os.MkdirAll(applyLongPathPrefix(dir), 0o755); err != nil {
		return "", classifyIOErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.AudioURL, nil)
	if err != nil {
		return "", &downloadError{kind: ErrorNetwork, err: err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", &downloadError{kind: ErrorNetwork, err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &downloadError{kind: ErrorNetwork, err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var total *int64
	if resp.ContentLength > 0 {
		t := resp.ContentLength
		total = &t
	}

	tmpPath := target + ".part"
	f, err := os.Create(applyLongPathPrefix(tmpPath))
	if err != nil {
		return "", classifyIOErr(err)
	}

	id := job.EpisodeID
	reader := &progressReader{r: resp.Body, onProgress: func(n int64) {
		m.mu.Lock()
		m.setStatusLocked(id, models.DownloadStatus{State: models.DownloadRunning, BytesReceived: n, TotalBytes: total})
		m.mu.Unlock()
	}}

	_, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	if copyErr != nil {
		if ctx.Err() != nil {
			// Canceled by the caller: leave the partial file on disk. Only a
			// fresh Enqueue (which overwrites tmpPath) or the next successful
			// attempt clears it.
			return "", context.Canceled
		}
		os.Remove(tmpPath)
		return "", &downloadError{kind: ErrorNetwork, err: copyErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", classifyIOErr(closeErr)
	}

	if err := os.Rename(applyLongPathPrefix(tmpPath), applyLongPathPrefix(target)); err != nil {
		os.Remove(tmpPath)
		return "", classifyIOErr(err)
	}
	return target, nil
}

func classifyIOErr(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "file name too long") || strings.Contains(msg, "name too long") {
		return &downloadError{kind: ErrorPathTooLong, err: err}
	}
	return &downloadError{kind: ErrorIO, err: err}
}

func extensionFor(audioURL string) string {
	clean := audioURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := filepath.Ext(clean)
	if ext == "" || len(ext) > 6 {
		return ".mp3"
	}
	return ext
}

// progressReader wraps an io.Reader, reporting cumulative bytes read after
// each chunk.
type progressReader struct {
	r          io.Reader
	total      int64
	onProgress func(int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.total += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.total)
		}
	}
	return n, err
}
