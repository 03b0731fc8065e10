// Package opml implements the Import Planner: given a parsed OPML
// document's entries and the current feed list, it classifies each entry
// as New, Duplicate, or Invalid. OPML XML lexing/serialisation itself is an
// external collaborator — this package only defines the plan contract.
package opml

import "github.com/podliner/podliner/internal/models"

// Entry is one <outline> read from an OPML document.
type Entry struct {
	Title string
	URL   string
}

// Classification is the outcome of planning a single Entry.
type Classification string

const (
	New       Classification = "new"
	Duplicate Classification = "duplicate"
	Invalid   Classification = "invalid"
)

// PlanItem pairs an Entry with its classification. ExistingFeedID is set
// only when Classification is Duplicate against an already-subscribed
// feed (as opposed to a duplicate within the document itself).
// UpdateTitle is set when the entry duplicates an existing feed whose
// stored title differs from the OPML title.
type PlanItem struct {
	Entry          Entry
	Classification Classification
	ExistingFeedID *models.FeedID
	UpdateTitle    bool
}

// Plan classifies every entry against existingFeeds and against earlier
// entries in the same document. It never mutates existingFeeds or entries
// and is idempotent — calling it twice with the same inputs produces the
// same plan, suitable for a preview step followed by a separate execution
// step.
func Plan(entries []Entry, existingFeeds []models.Feed) []PlanItem {
	existingByURL := make(map[string]models.Feed, len(existingFeeds))
	for _, f := range existingFeeds {
		canon, err := models.CanonicalURL(f.URL)
		if err != nil {
			continue
		}
		existingByURL[canon] = f
	}

	seen := make(map[string]bool, len(entries))
	plan := make([]PlanItem, 0, len(entries))

	for _, e := range entries {
		canon, err := models.CanonicalURL(e.URL)
		if err != nil {
			plan = append(plan, PlanItem{Entry: e, Classification: Invalid})
			continue
		}

		if f, ok := existingByURL[canon]; ok {
			feedID := f.ID
			plan = append(plan, PlanItem{
				Entry:          e,
				Classification: Duplicate,
				ExistingFeedID: &feedID,
				UpdateTitle:    e.Title != "" && e.Title != f.Title,
			})
			seen[canon] = true
			continue
		}

		if seen[canon] {
			plan = append(plan, PlanItem{Entry: e, Classification: Duplicate})
			continue
		}
		seen[canon] = true
		plan = append(plan, PlanItem{Entry: e, Classification: New})
	}

	return plan
}

// Counts tallies a plan's classifications, for a preview summary line.
type Counts struct {
	New       int
	Duplicate int
	Invalid   int
}

// Count tallies plan by Classification.
func Count(plan []PlanItem) Counts {
	var c Counts
	for _, p := range plan {
		switch p.Classification {
		case New:
			c.New++
		case Duplicate:
			c.Duplicate++
		case Invalid:
			c.Invalid++
		}
	}
	return c
}
