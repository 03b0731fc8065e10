package opml

import (
	"testing"

	"github.com/podliner/podliner/internal/models"
)

func TestPlanWorkedExample(t *testing.T) {
	existing := []models.Feed{
		{ID: models.NewID(), URL: "https://a/feed", Title: "A Feed"},
	}
	entries := []Entry{
		{Title: "A Feed", URL: "https://a/feed"},
		{Title: "B Feed", URL: "https://b/feed"},
		{Title: "Bad", URL: "bad-url"},
		{Title: "B Feed Again", URL: "https://b/feed"},
	}

	plan := Plan(entries, existing)
	if len(plan) != 4 {
		t.Fatalf("expected 4 plan items, got %d", len(plan))
	}

	want := []Classification{Duplicate, New, Invalid, Duplicate}
	for i, w := range want {
		if plan[i].Classification != w {
			t.Errorf("entry %d: got %q want %q", i, plan[i].Classification, w)
		}
	}

	counts := Count(plan)
	if counts.New != 1 || counts.Duplicate != 2 || counts.Invalid != 1 {
		t.Errorf("got counts %+v, want New=1 Duplicate=2 Invalid=1", counts)
	}
}

func TestPlanDuplicateAgainstExistingFeedCarriesFeedID(t *testing.T) {
	existingID := models.NewID()
	existing := []models.Feed{{ID: existingID, URL: "https://a/feed", Title: "Old Title"}}
	entries := []Entry{{Title: "New Title", URL: "https://a/feed"}}

	plan := Plan(entries, existing)
	if plan[0].ExistingFeedID == nil || *plan[0].ExistingFeedID != existingID {
		t.Fatal("expected ExistingFeedID to be set to the matched feed")
	}
	if !plan[0].UpdateTitle {
		t.Error("expected UpdateTitle since titles differ")
	}
}

func TestPlanDuplicateWithMatchingTitleDoesNotFlagUpdate(t *testing.T) {
	existing := []models.Feed{{ID: models.NewID(), URL: "https://a/feed", Title: "Same Title"}}
	entries := []Entry{{Title: "Same Title", URL: "https://a/feed"}}

	plan := Plan(entries, existing)
	if plan[0].UpdateTitle {
		t.Error("expected no UpdateTitle when titles already match")
	}
}

func TestPlanCaseInsensitiveURLMatch(t *testing.T) {
	existing := []models.Feed{{ID: models.NewID(), URL: "https://Example.test/feed"}}
	entries := []Entry{{URL: "https://EXAMPLE.test/feed"}}

	plan := Plan(entries, existing)
	if plan[0].Classification != Duplicate {
		t.Errorf("expected case-insensitive host match to classify as Duplicate, got %q", plan[0].Classification)
	}
}

func TestPlanIsPureAndIdempotent(t *testing.T) {
	existing := []models.Feed{{ID: models.NewID(), URL: "https://a/feed"}}
	entries := []Entry{{URL: "https://a/feed"}, {URL: "https://b/feed"}}

	first := Plan(entries, existing)
	second := Plan(entries, existing)
	if len(first) != len(second) {
		t.Fatal("expected repeated planning to be idempotent")
	}
	for i := range first {
		if first[i].Classification != second[i].Classification {
			t.Errorf("entry %d classification changed between calls", i)
		}
	}
	if len(existing) != 1 {
		t.Error("Plan must not mutate the existing feed list")
	}
}

func TestPlanEmptyURLIsInvalid(t *testing.T) {
	plan := Plan([]Entry{{Title: "No URL", URL: ""}}, nil)
	if plan[0].Classification != Invalid {
		t.Errorf("got %q want Invalid", plan[0].Classification)
	}
}
