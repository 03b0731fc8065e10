// Package playback coordinates a single audio session on top of an
// engine.Engine: session bookkeeping, resume-on-play, progress persistence,
// end-of-episode detection, and next-episode selection.
package playback

import "time"

// longEpisodeThreshold is the effLen boundary between the two played-mark
// threshold pairs.
const longEpisodeThreshold = 60 * time.Second

// EffectiveLength picks the most trustworthy notion of an episode's total
// length available this tick: the engine's own report if it has one, else
// whatever was already known for the episode, else at minimum the current
// position (an episode can never be shorter than how far into it we are).
func EffectiveLength(engineLength, knownDurationMs, posMs time.Duration) time.Duration {
	eff := knownDurationMs
	if engineLength > eff {
		eff = engineLength
	}
	if posMs > eff {
		eff = posMs
	}
	return eff
}

// ShouldMarkPlayed applies the two played-mark threshold pairs from the
// effective-length branch: long episodes (> 60s) mark at 90% or 30s
// remaining; short episodes tighten to 98% or 5s remaining.
func ShouldMarkPlayed(effLen, pos time.Duration) bool {
	if effLen <= 0 {
		return false
	}
	ratio := float64(pos) / float64(effLen)
	remaining := effLen - pos
	if effLen > longEpisodeThreshold {
		return ratio >= 0.90 || remaining <= 30*time.Second
	}
	return ratio >= 0.98 || remaining <= 5*time.Second
}

// IsEndReached implements the two-branch end-detection algorithm. When the
// engine reports a real Length, that branch is authoritative; only when the
// engine doesn't know its own length (Length <= 0) does detection fall back
// to the effective length computed from persisted/observed data.
func IsEndReached(engineLength, effLen, pos time.Duration, isPlaying bool) bool {
	if engineLength > 0 {
		ratio := float64(pos) / float64(engineLength)
		remaining := engineLength - pos
		return ratio >= 0.995 ||
			(!isPlaying && remaining <= 2*time.Second) ||
			(!isPlaying && pos >= engineLength-250*time.Millisecond)
	}
	if effLen <= 0 {
		return false
	}
	ratio := float64(pos) / float64(effLen)
	remaining := effLen - pos
	return ratio >= 0.995 || (!isPlaying && remaining <= 500*time.Millisecond)
}

// ResumeSeekTarget reports whether Play should schedule a one-shot resume
// seek, and to where. length <= 0 means the engine/episode length isn't
// known yet; the wider "m >= 5s" rule applies in that case.
func ResumeSeekTarget(lastPos, length time.Duration) (target time.Duration, ok bool) {
	const minResume = 5 * time.Second
	const tailGuard = 10 * time.Second
	if lastPos < minResume {
		return 0, false
	}
	if length > 0 && lastPos > length-tailGuard {
		return 0, false
	}
	return lastPos, true
}
