package models

import "time"

// Episode is one item belonging to a Feed. Identity is the pair
// (FeedID, AudioURL) — RssGUID is carried along for display/debugging but is
// never used to merge episodes, since a feed is free to reuse or omit GUIDs.
type Episode struct {
	ID       EpisodeID `json:"id"`
	FeedID   FeedID    `json:"feed_id"`
	AudioURL string    `json:"audio_url"`
	RssGUID  string    `json:"rss_guid,omitempty"`

	Title       string    `json:"title"`
	PubDate     time.Time `json:"pub_date,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"` // 0 = unknown, never negative
	Description string    `json:"description,omitempty"` // plain text, no HTML

	Saved                bool `json:"saved"`
	ManuallyMarkedPlayed bool `json:"manually_marked_played"`

	Progress Progress `json:"progress"`
}

// Progress is an episode's resume position.
type Progress struct {
	LastPosMs    int64      `json:"last_pos_ms"` // >= 0
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// Clamp enforces 0 <= LastPosMs <= DurationMs whenever DurationMs is known.
// It is called after every load and after every write to Progress so the
// invariant can never be violated by a stale duration or a bad IPC value.
func (e *Episode) Clamp() {
	if e.DurationMs < 0 {
		e.DurationMs = 0
	}
	if e.Progress.LastPosMs < 0 {
		e.Progress.LastPosMs = 0
	}
	if e.DurationMs > 0 && e.Progress.LastPosMs > e.DurationMs {
		e.Progress.LastPosMs = e.DurationMs
	}
}

// Played reports whether the episode should be considered played, either
// because the user marked it so or because playback reached the end.
func (e Episode) Played() bool {
	return e.ManuallyMarkedPlayed
}

// Identity returns the (FeedID, AudioURL) pair that uniquely identifies this
// episode within its feed.
func (e Episode) Identity() (FeedID, string) {
	return e.FeedID, e.AudioURL
}
