// Package models defines the data structures for podliner's library and
// preferences. JSON field names are part of the on-disk contract — do not
// rename them without a schema migration.
package models

import "github.com/google/uuid"

// FeedID identifies a Feed, or one of the five well-known virtual feeds.
type FeedID = uuid.UUID

// EpisodeID identifies an Episode.
type EpisodeID = uuid.UUID

// NilID is the zero-value id, used to mean "no episode/feed selected".
var NilID = uuid.Nil

// Well-known virtual feed ids. These address synthetic views (All, Saved,
// Downloaded, History, Queue) rather than real Feed rows. They are fixed
// so that persisted LastSelection.FeedId values remain stable across runs.
var (
	VirtualFeedAll        = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	VirtualFeedSaved      = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	VirtualFeedDownloaded = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	VirtualFeedHistory    = uuid.MustParse("00000000-0000-0000-0000-000000000004")
	VirtualFeedQueue      = uuid.MustParse("00000000-0000-0000-0000-000000000005")
)

// VirtualFeeds lists all virtual feed ids, in a stable order.
var VirtualFeeds = []FeedID{
	VirtualFeedAll,
	VirtualFeedSaved,
	VirtualFeedDownloaded,
	VirtualFeedHistory,
	VirtualFeedQueue,
}

// IsVirtualFeed reports whether id addresses a synthetic view rather than a
// real Feed.
func IsVirtualFeed(id FeedID) bool {
	for _, v := range VirtualFeeds {
		if v == id {
			return true
		}
	}
	return false
}

// NewID generates a new random entity id.
func NewID() uuid.UUID {
	return uuid.New()
}
