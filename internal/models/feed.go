package models

import "time"

// Feed is a subscribed RSS/Atom source.
type Feed struct {
	ID          FeedID    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"` // canonical absolute http/https URL
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// Valid reports whether the feed satisfies its one invariant: a non-empty URL.
func (f Feed) Valid() bool {
	return f.URL != ""
}
