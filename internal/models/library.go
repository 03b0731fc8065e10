package models

// Library is the persisted document owned by the LibraryStore: every Feed,
// every Episode, the play Queue, and playback History. DownloadStatus is
// deliberately absent — it lives in the Download Manager's own side map,
// rebuilt from disk contents rather than trusted from a stale snapshot.
type Library struct {
	SchemaVersion int       `json:"schema_version"`
	Feeds         []Feed    `json:"feeds"`
	Episodes      []Episode `json:"episodes"`
	Queue         Queue     `json:"queue"`
	History       History   `json:"history"`
	HistorySize   int       `json:"history_size,omitempty"`
}

// DefaultLibrary returns the document used when no library file exists yet.
func DefaultLibrary() Library {
	return Library{
		SchemaVersion: CurrentSchemaVersion,
		Feeds:         []Feed{},
		Episodes:      []Episode{},
		Queue:         Queue{},
		History:       History{},
		HistorySize:   DefaultHistorySize,
	}
}

// Normalize repairs a library loaded from disk: it dedupes feeds and
// episodes by id, drops episodes whose feed no longer exists, clamps every
// episode's progress, and filters queue/history entries down to episodes
// that still exist. It never fails — a library that cannot be made fully
// consistent is trimmed rather than rejected, since refusing to start is
// worse than silently dropping a dangling reference.
func (l *Library) Normalize() {
	if l.SchemaVersion <= 0 {
		l.SchemaVersion = CurrentSchemaVersion
	}
	if l.HistorySize <= 0 {
		l.HistorySize = DefaultHistorySize
	}
	l.HistorySize = ClampHistorySize(l.HistorySize)
	if l.Feeds == nil {
		l.Feeds = []Feed{}
	}
	if l.Episodes == nil {
		l.Episodes = []Episode{}
	}
	if l.Queue == nil {
		l.Queue = Queue{}
	}
	if l.History == nil {
		l.History = History{}
	}

	feedIDs := make(map[FeedID]bool, len(l.Feeds))
	dedupedFeeds := make([]Feed, 0, len(l.Feeds))
	for _, f := range l.Feeds {
		if !f.Valid() || feedIDs[f.ID] {
			continue
		}
		feedIDs[f.ID] = true
		dedupedFeeds = append(dedupedFeeds, f)
	}
	l.Feeds = dedupedFeeds

	episodeIDs := make(map[EpisodeID]bool, len(l.Episodes))
	dedupedEpisodes := make([]Episode, 0, len(l.Episodes))
	for _, e := range l.Episodes {
		if episodeIDs[e.ID] {
			continue
		}
		if !feedIDs[e.FeedID] {
			continue
		}
		e.Clamp()
		episodeIDs[e.ID] = true
		dedupedEpisodes = append(dedupedEpisodes, e)
	}
	l.Episodes = dedupedEpisodes

	filteredQueue := make(Queue, 0, len(l.Queue))
	for _, id := range l.Queue {
		if episodeIDs[id] {
			filteredQueue = append(filteredQueue, id)
		}
	}
	l.Queue = filteredQueue

	filteredHistory := make(History, 0, len(l.History))
	for _, h := range l.History {
		if episodeIDs[h.EpisodeID] {
			filteredHistory = append(filteredHistory, h)
		}
	}
	if len(filteredHistory) > l.HistorySize {
		filteredHistory = filteredHistory[len(filteredHistory)-l.HistorySize:]
	}
	l.History = filteredHistory
}

// EpisodeByID finds an episode by id, if present.
func (l Library) EpisodeByID(id EpisodeID) (Episode, bool) {
	for _, e := range l.Episodes {
		if e.ID == id {
			return e, true
		}
	}
	return Episode{}, false
}

// FeedByID finds a feed by id, if present.
func (l Library) FeedByID(id FeedID) (Feed, bool) {
	for _, f := range l.Feeds {
		if f.ID == id {
			return f, true
		}
	}
	return Feed{}, false
}

// EpisodeByIdentity finds an episode by its (FeedID, AudioURL) identity,
// using the same canonicalisation rule as Feed URL comparison.
func (l Library) EpisodeByIdentity(feedID FeedID, audioURL string) (Episode, bool) {
	for _, e := range l.Episodes {
		if e.FeedID == feedID && SameURL(e.AudioURL, audioURL) {
			return e, true
		}
	}
	return Episode{}, false
}
