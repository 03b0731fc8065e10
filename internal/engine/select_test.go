package engine

import (
	"reflect"
	"testing"

	"github.com/podliner/podliner/internal/models"
)

func TestPreferenceToKind(t *testing.T) {
	cases := []struct {
		pref models.EnginePreference
		want Kind
	}{
		{models.EngineAuto, ""},
		{models.EngineLibVLC, KindVLC},
		{models.EngineMPV, KindMPV},
		{models.EngineFFplay, KindFFplay},
		{models.EngineMediaFoundation, KindMediaFoundation},
	}
	for _, c := range cases {
		if got := preferenceToKind(c.pref); got != c.want {
			t.Errorf("preferenceToKind(%q) = %q, want %q", c.pref, got, c.want)
		}
	}
}

func TestReorderStartingAt(t *testing.T) {
	order := []Kind{KindVLC, KindMPV, KindMediaFoundation, KindFFplay}

	got := reorderStartingAt(order, KindFFplay)
	want := []Kind{KindFFplay, KindVLC, KindMPV, KindMediaFoundation}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reorderStartingAt = %v, want %v", got, want)
	}

	// Every candidate still appears exactly once regardless of which kind
	// is promoted to the front.
	for _, promote := range order {
		reordered := reorderStartingAt(order, promote)
		if len(reordered) != len(order) {
			t.Fatalf("reorderStartingAt(%q) changed length", promote)
		}
		seen := map[Kind]bool{}
		for _, k := range reordered {
			seen[k] = true
		}
		for _, k := range order {
			if !seen[k] {
				t.Errorf("reorderStartingAt(%q) dropped %q", promote, k)
			}
		}
		if reordered[0] != promote {
			t.Errorf("reorderStartingAt(%q)[0] = %q, want %q", promote, reordered[0], promote)
		}
	}
}

func TestAvailableNeverPicksMediaFoundationOffWindows(t *testing.T) {
	if available(KindMediaFoundation) {
		t.Skip("running on windows, mediafoundation is expected to be available")
	}
}
