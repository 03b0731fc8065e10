package command

import (
	"testing"
	"time"

	"github.com/podliner/podliner/internal/models"
)

func TestParseSeekAbsoluteSeconds(t *testing.T) {
	st, err := ParseSeek("90")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Resolve(0, 10*time.Minute); got != 90*time.Second {
		t.Errorf("got %v want 90s", got)
	}
}

func TestParseSeekRelative(t *testing.T) {
	st, err := ParseSeek("+30")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Resolve(10*time.Second, 10*time.Minute); got != 40*time.Second {
		t.Errorf("got %v want 40s", got)
	}

	st, err = ParseSeek("-30")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Resolve(10*time.Second, 10*time.Minute); got != 0 {
		t.Errorf("got %v want clamped to 0", got)
	}
}

func TestParseSeekPercent(t *testing.T) {
	st, err := ParseSeek("50%")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Resolve(0, 10*time.Minute); got != 5*time.Minute {
		t.Errorf("got %v want 5m", got)
	}
}

func TestParseSeekClock(t *testing.T) {
	st, err := ParseSeek("01:30")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Resolve(0, time.Hour); got != 90*time.Second {
		t.Errorf("got %v want 90s", got)
	}

	st, err = ParseSeek("01:02:03")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second
	if got := st.Resolve(0, 2*time.Hour); got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestParseSeekInvalid(t *testing.T) {
	if _, err := ParseSeek("abc"); err == nil {
		t.Error("expected an error for a non-numeric seek argument")
	}
}

func TestParseVolumeAbsoluteClamped(t *testing.T) {
	v, err := ParseVolume("150", 50)
	if err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Errorf("got %d want clamped to 100", v)
	}
}

func TestParseVolumeRelative(t *testing.T) {
	v, err := ParseVolume("+10", 50)
	if err != nil {
		t.Fatal(err)
	}
	if v != 60 {
		t.Errorf("got %d want 60", v)
	}
	v, err = ParseVolume("-200", 50)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("got %d want clamped to 0", v)
	}
}

func TestParseSpeedAbsoluteClamped(t *testing.T) {
	s, err := ParseSpeed("10", 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if s != models.EngineMaxSpeed {
		t.Errorf("got %v want clamped to %v", s, models.EngineMaxSpeed)
	}
}

func TestParseSpeedRelative(t *testing.T) {
	s, err := ParseSpeed("+0.25", 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if s != 1.25 {
		t.Errorf("got %v want 1.25", s)
	}
}

func TestParseSortEpisodeKey(t *testing.T) {
	feeds, key, dir, err := ParseSort([]string{"progress", "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if feeds || key != "progress" || dir != models.SortAsc {
		t.Errorf("got feeds=%v key=%v dir=%v", feeds, key, dir)
	}
}

func TestParseSortFeedsKey(t *testing.T) {
	feeds, key, dir, err := ParseSort([]string{"feeds", "unplayed"})
	if err != nil {
		t.Fatal(err)
	}
	if !feeds || key != "unplayed" || dir != models.SortDesc {
		t.Errorf("got feeds=%v key=%v dir=%v", feeds, key, dir)
	}
}

func TestParseSortInvalidKey(t *testing.T) {
	if _, _, _, err := ParseSort([]string{"bogus"}); err == nil {
		t.Error("expected an error for an invalid sort key")
	}
}

func TestParseQueueSubMove(t *testing.T) {
	op, dir, err := ParseQueueSub([]string{"move", "top"})
	if err != nil {
		t.Fatal(err)
	}
	if op != QueueMove || dir != MoveTop {
		t.Errorf("got op=%v dir=%v", op, dir)
	}
}

func TestParseQueueSubRemoveAliases(t *testing.T) {
	for _, alias := range []string{"rm", "remove"} {
		op, _, err := ParseQueueSub([]string{alias})
		if err != nil {
			t.Fatal(err)
		}
		if op != QueueRemove {
			t.Errorf("alias %q: got op=%v want remove", alias, op)
		}
	}
}

func TestParseVirtualFeed(t *testing.T) {
	id, err := ParseVirtualFeed("Downloaded")
	if err != nil {
		t.Fatal(err)
	}
	if id != models.VirtualFeedDownloaded {
		t.Errorf("got %v want VirtualFeedDownloaded", id)
	}
	if _, err := ParseVirtualFeed("bogus"); err == nil {
		t.Error("expected an error for an unknown virtual feed keyword")
	}
}

func TestParseOPMLImport(t *testing.T) {
	act, err := ParseOPML([]string{"import", "/tmp/feeds.opml", "--update-titles"})
	if err != nil {
		t.Fatal(err)
	}
	if !act.Import || act.Path != "/tmp/feeds.opml" || !act.UpdateTitles {
		t.Errorf("got %+v", act)
	}
}

func TestParseOPMLExportDefaultPath(t *testing.T) {
	act, err := ParseOPML([]string{"export"})
	if err != nil {
		t.Fatal(err)
	}
	if act.Import || act.Path != "" {
		t.Errorf("got %+v", act)
	}
}
