package playback

import (
	"sort"

	"github.com/podliner/podliner/internal/models"
)

// NextEpisode implements the two-step next-episode selection: the queue
// head wins if it still resolves to a real episode (skipping any stale
// entries left over from a dropped episode), otherwise it falls back to
// walking the current episode's feed by PubDate descending.
//
// It returns the chosen episode and the queue with that entry (and any
// skipped stale entries before it) removed. ok is false if nothing could be
// selected at all.
func NextEpisode(lib models.Library, currentEpisodeID models.EpisodeID, unplayedOnly, wrapAdvance bool) (models.Episode, models.Queue, bool) {
	queue := lib.Queue
	for {
		id, rest, ok := queue.PopFront()
		if !ok {
			break
		}
		queue = rest
		if ep, found := lib.EpisodeByID(id); found {
			return ep, queue, true
		}
		// Stale queue entry (episode deleted since queuing) — skip it.
	}

	current, found := lib.EpisodeByID(currentEpisodeID)
	if !found {
		return models.Episode{}, queue, false
	}
	ep, ok := sameFeedNext(lib, current, unplayedOnly, wrapAdvance)
	return ep, queue, ok
}

// sameFeedNext walks episodes in current.FeedID ordered by PubDate
// descending, looking for the next one after current.
func sameFeedNext(lib models.Library, current models.Episode, unplayedOnly, wrapAdvance bool) (models.Episode, bool) {
	feedEps := make([]models.Episode, 0, len(lib.Episodes))
	for _, e := range lib.Episodes {
		if e.FeedID == current.FeedID {
			feedEps = append(feedEps, e)
		}
	}
	sort.Slice(feedEps, func(i, j int) bool {
		return feedEps[i].PubDate.After(feedEps[j].PubDate)
	})

	idx := -1
	for i, e := range feedEps {
		if e.ID == current.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Episode{}, false
	}

	if ep, ok := firstMatchFrom(feedEps, idx+1, unplayedOnly); ok {
		return ep, true
	}
	if wrapAdvance {
		if ep, ok := firstMatchFrom(feedEps, 0, unplayedOnly); ok && ep.ID != current.ID {
			return ep, true
		}
	}
	return models.Episode{}, false
}

func firstMatchFrom(eps []models.Episode, start int, unplayedOnly bool) (models.Episode, bool) {
	for i := start; i < len(eps); i++ {
		if unplayedOnly && eps[i].Played() {
			continue
		}
		return eps[i], true
	}
	return models.Episode{}, false
}
