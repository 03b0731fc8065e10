// Package feeds implements the Feed Service: AddFeed/RefreshFeed with
// soft-merge upsert semantics. Parsing the feed document itself is an
// external collaborator's job (no RSS/Atom library dependency lives in this
// package) — Parser is the only boundary this package needs.
package feeds

import (
	"context"
	"strings"
	"time"

	"github.com/podliner/podliner/internal/apperr"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
)

// Item is one entry an external parser extracted from a feed document.
type Item struct {
	AudioURL    string
	GUID        string
	Title       string
	PubDate     time.Time
	Duration    string // raw duration text; parsed via ParseDurationMs
	Description string // plain text, HTML already stripped by the parser
}

// Document is the result of fetching and parsing a feed.
type Document struct {
	Title string
	Items []Item
}

// Parser fetches and parses a feed document. It is the only seam between
// this package and an actual RSS/Atom/HTTP implementation.
type Parser interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// Service implements AddFeed/RefreshFeed against a library.Store.
type Service struct {
	lib    *library.Store
	parser Parser
}

// NewService builds a Service.
func NewService(lib *library.Store, parser Parser) *Service {
	return &Service{lib: lib, parser: parser}
}

// AddFeed upserts a feed by URL: if an equivalent feed already exists
// (canonical URL match), it is returned as-is and a refresh is triggered;
// otherwise a new Feed is inserted (title filled in on a best-effort basis)
// and a full refresh follows to ingest its episodes.
func (s *Service) AddFeed(ctx context.Context, rawURL string) (models.Feed, error) {
	canonical, err := models.CanonicalURL(rawURL)
	if err != nil {
		return models.Feed{}, apperr.Wrap(apperr.KindInvalidArgument, "feeds.AddFeed", "invalid feed URL", err)
	}

	lib := s.lib.Current()
	if existing, ok := findFeedByURL(lib.Feeds, canonical); ok {
		_ = s.RefreshFeed(ctx, existing)
		return existing, nil
	}

	feed := models.Feed{ID: models.NewID(), URL: canonical}
	if doc, fetchErr := s.parser.Fetch(ctx, canonical); fetchErr == nil {
		feed.Title = strings.TrimSpace(doc.Title)
	}

	s.lib.Update(func(l *models.Library) {
		l.Feeds = append(l.Feeds, feed)
	})

	return feed, s.RefreshFeed(ctx, feed)
}

// RefreshFeed fetches feed's document and upserts its metadata and
// episodes. LastChecked is updated even when the fetch fails; the title is
// filled in only if it was previously empty. Each item with a non-empty
// AudioURL is inserted if new, or soft-merged into the existing episode —
// only empty title/pub-date/description/duration fields are filled, and
// progress/saved/played flags are never touched.
func (s *Service) RefreshFeed(ctx context.Context, feed models.Feed) error {
	doc, fetchErr := s.parser.Fetch(ctx, feed.URL)
	now := time.Now()

	s.lib.Update(func(l *models.Library) {
		for i := range l.Feeds {
			if l.Feeds[i].ID != feed.ID {
				continue
			}
			l.Feeds[i].LastChecked = now
			if fetchErr == nil && l.Feeds[i].Title == "" && doc.Title != "" {
				l.Feeds[i].Title = strings.TrimSpace(doc.Title)
			}
			break
		}
		if fetchErr != nil {
			return
		}
		for _, item := range doc.Items {
			if item.AudioURL == "" {
				continue
			}
			upsertEpisode(l, feed.ID, item)
		}
	})

	if fetchErr != nil {
		return apperr.Wrap(apperr.KindIO, "feeds.RefreshFeed", "fetching feed document", fetchErr)
	}
	return nil
}

// RemoveFeed unsubscribes feedID: the feed and every episode belonging to
// it are dropped from the library, and the same Update normalises the
// library, so queue and history entries referencing those episodes are
// removed at once.
func (s *Service) RemoveFeed(feedID models.FeedID) {
	s.lib.Update(func(l *models.Library) {
		feeds := l.Feeds[:0]
		for _, f := range l.Feeds {
			if f.ID != feedID {
				feeds = append(feeds, f)
			}
		}
		l.Feeds = feeds

		episodes := l.Episodes[:0]
		for _, e := range l.Episodes {
			if e.FeedID != feedID {
				episodes = append(episodes, e)
			}
		}
		l.Episodes = episodes
		l.Normalize()
	})
}

func findFeedByURL(feeds []models.Feed, canonicalURL string) (models.Feed, bool) {
	for _, f := range feeds {
		if models.SameURL(f.URL, canonicalURL) {
			return f, true
		}
	}
	return models.Feed{}, false
}

// upsertEpisode inserts item as a new Episode if no episode with the
// (feedID, AudioURL) identity exists yet, or soft-merges it into the
// existing one otherwise. Must be called from inside a library.Store.Update
// closure.
func upsertEpisode(l *models.Library, feedID models.FeedID, item Item) {
	durationMs, _ := ParseDurationMs(item.Duration)

	for i := range l.Episodes {
		e := &l.Episodes[i]
		if e.FeedID != feedID || !models.SameURL(e.AudioURL, item.AudioURL) {
			continue
		}
		if e.Title == "" {
			e.Title = item.Title
		}
		if e.PubDate.IsZero() {
			e.PubDate = item.PubDate
		}
		if e.Description == "" {
			e.Description = item.Description
		}
		if e.DurationMs == 0 && durationMs > 0 {
			e.DurationMs = durationMs
			e.Clamp()
		}
		return
	}

	l.Episodes = append(l.Episodes, models.Episode{
		ID:          models.NewID(),
		FeedID:      feedID,
		AudioURL:    item.AudioURL,
		RssGUID:     item.GUID,
		Title:       item.Title,
		PubDate:     item.PubDate,
		DurationMs:  durationMs,
		Description: item.Description,
	})
}
