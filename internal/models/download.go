package models

import "time"

// DownloadState is the lifecycle state of a single episode download. It is
// never persisted as part of the Library — the Download Manager keeps it in
// its own side map keyed by episode id, rebuilt from disk contents at
// startup.
type DownloadState string

const (
	DownloadNone      DownloadState = "none"
	DownloadQueued    DownloadState = "queued"
	DownloadRunning   DownloadState = "running"
	DownloadVerifying DownloadState = "verifying"
	DownloadDone      DownloadState = "done"
	DownloadFailed    DownloadState = "failed"
	DownloadCanceled  DownloadState = "canceled"
)

// DownloadStatus reports the current download state for one episode.
//
// Invariant: State == DownloadDone implies LocalPath is non-empty and (at
// the time the status was last refreshed) referred to a file that existed
// on disk — callers that need a live guarantee should re-stat rather than
// trust a cached Done status indefinitely.
type DownloadStatus struct {
	State         DownloadState `json:"state"`
	BytesReceived int64         `json:"bytes_received"`
	TotalBytes    *int64        `json:"total_bytes,omitempty"`
	LocalPath     string        `json:"local_path,omitempty"`
	Err           string        `json:"error,omitempty"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// Done reports whether the download completed successfully.
func (d DownloadStatus) Done() bool {
	return d.State == DownloadDone && d.LocalPath != ""
}

// Terminal reports whether the state will not change without a new Enqueue.
func (d DownloadStatus) Terminal() bool {
	switch d.State {
	case DownloadDone, DownloadFailed, DownloadCanceled:
		return true
	default:
		return false
	}
}
