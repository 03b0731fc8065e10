package models

import "time"

// PlaybackStatus is the Playback Coordinator's session state machine value,
// surfaced to observers alongside each Snapshot.
type PlaybackStatus string

const (
	StatusIdle        PlaybackStatus = "idle"
	StatusLoading     PlaybackStatus = "loading"
	StatusSlowNetwork PlaybackStatus = "slow_network"
	StatusPlaying     PlaybackStatus = "playing"
	StatusEnded       PlaybackStatus = "ended"
)

// PlaybackSnapshot is an immutable point-in-time view of the active session,
// published to the UI, MPRIS bridge, and sync observers. Every field is
// clamped at construction so that no observer ever has to re-validate it.
type PlaybackSnapshot struct {
	SessionID int64
	EpisodeID *EpisodeID
	Position  time.Duration // >= 0
	Length    time.Duration // >= 0
	IsPlaying bool
	Speed     float64 // > 0, defaulted to 1.0 if the input was <= 0
	Timestamp time.Time
}

// NewSnapshot builds a PlaybackSnapshot, clamping Position, Length, and
// Speed so construction can never produce an invariant-violating value.
func NewSnapshot(sessionID int64, episodeID *EpisodeID, position, length time.Duration, isPlaying bool, speed float64, at time.Time) PlaybackSnapshot {
	if position < 0 {
		position = 0
	}
	if length < 0 {
		length = 0
	}
	if speed <= 0 {
		speed = 1.0
	}
	return PlaybackSnapshot{
		SessionID: sessionID,
		EpisodeID: episodeID,
		Position:  position,
		Length:    length,
		IsPlaying: isPlaying,
		Speed:     speed,
		Timestamp: at,
	}
}
