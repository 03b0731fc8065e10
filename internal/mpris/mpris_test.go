//go:build linux

package mpris

import (
	"testing"
	"time"

	"github.com/podliner/podliner/internal/models"
)

func snap(epID *models.EpisodeID, pos time.Duration, playing bool, speed float64, at time.Time) models.PlaybackSnapshot {
	return models.NewSnapshot(1, epID, pos, time.Hour, playing, speed, at)
}

func TestIsSeekDetectedFalseForNormalPlayback(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, true, 1.0, base)
	cur := snap(&ep, 11*time.Second, true, 1.0, base.Add(time.Second))
	if IsSeekDetected(prev, cur) {
		t.Error("one second of elapsed 1x playback should not register as a seek")
	}
}

func TestIsSeekDetectedTrueForForwardJump(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, true, 1.0, base)
	cur := snap(&ep, 60*time.Second, true, 1.0, base.Add(time.Second))
	if !IsSeekDetected(prev, cur) {
		t.Error("a 50s jump in 1s of wall time should register as a seek")
	}
}

func TestIsSeekDetectedTrueForBackwardJump(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 60*time.Second, true, 1.0, base)
	cur := snap(&ep, 10*time.Second, true, 1.0, base.Add(time.Second))
	if !IsSeekDetected(prev, cur) {
		t.Error("a backward jump should register as a seek")
	}
}

func TestIsSeekDetectedFalseAcrossEpisodeBoundary(t *testing.T) {
	ep1, ep2 := models.NewID(), models.NewID()
	base := time.Now()
	prev := snap(&ep1, 90*time.Second, true, 1.0, base)
	cur := snap(&ep2, 0, true, 1.0, base.Add(time.Second))
	if IsSeekDetected(prev, cur) {
		t.Error("a new episode's reset position is not a seek within the old episode")
	}
}

func TestIsSeekDetectedAccountsForSpeed(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, true, 2.0, base)
	cur := snap(&ep, 14*time.Second, true, 2.0, base.Add(2*time.Second))
	if IsSeekDetected(prev, cur) {
		t.Error("4s of movement in 2s of wall time at 2x speed is expected, not a seek")
	}
}

func TestIsSeekDetectedFalseWhenPrevNotPlaying(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, false, 1.0, base)
	cur := snap(&ep, 60*time.Second, true, 1.0, base.Add(time.Second))
	if IsSeekDetected(prev, cur) {
		t.Error("a position change while prev was paused should not register as a seek")
	}
}

func TestIsSeekDetectedFalseWhenElapsedExceedsWindow(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, true, 1.0, base)
	cur := snap(&ep, 3600*time.Second, true, 1.0, base.Add(20*time.Second))
	if IsSeekDetected(prev, cur) {
		t.Error("elapsed time beyond the seek window should not register as a seek")
	}
}

func TestIsSeekDetectedFalseWhenElapsedNonPositive(t *testing.T) {
	ep := models.NewID()
	base := time.Now()
	prev := snap(&ep, 10*time.Second, true, 1.0, base)
	cur := snap(&ep, 60*time.Second, true, 1.0, base)
	if IsSeekDetected(prev, cur) {
		t.Error("zero elapsed time should not register as a seek")
	}
}
