package sync

import (
	"context"
	"time"

	"github.com/podliner/podliner/internal/events"
	"github.com/podliner/podliner/internal/library"
	"github.com/podliner/podliner/internal/models"
)

// SnapshotSource is the subset of *playback.Coordinator the observer needs:
// its snapshot and status event buses. An interface here avoids a direct
// dependency from internal/sync on internal/playback.
type SnapshotSource interface {
	Snapshots() *events.Bus[models.PlaybackSnapshot]
	StatusChanges() *events.Bus[models.PlaybackStatus]
}

// Observer watches playback snapshots and turns session transitions into
// queued gPodder play actions: a new SessionId queues an action for the
// episode just left, and an Ended status additionally queues one for the
// episode that just finished.
type Observer struct {
	svc *Service
	lib *library.Store

	subID string

	lastSessionID int64
	lastEpisodeID models.EpisodeID
	lastPosition  time.Duration
	lastLength    time.Duration
	haveLast      bool
}

// NewObserver builds an Observer. It does nothing until Run is called.
func NewObserver(svc *Service, lib *library.Store, subID string) *Observer {
	return &Observer{svc: svc, lib: lib, subID: subID}
}

// Run subscribes to src's buses and processes events until ctx is canceled.
func (o *Observer) Run(ctx context.Context, src SnapshotSource) {
	snaps := src.Snapshots().Subscribe(o.subID + "-snap")
	statuses := src.StatusChanges().Subscribe(o.subID + "-status")
	defer src.Snapshots().Unsubscribe(o.subID + "-snap")
	defer src.StatusChanges().Unsubscribe(o.subID + "-status")

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			o.onSnapshot(snap)
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if status == models.StatusEnded {
				o.onEnded()
			}
		}
	}
}

func (o *Observer) onSnapshot(snap models.PlaybackSnapshot) {
	newSession := !o.haveLast || snap.SessionID != o.lastSessionID
	if newSession && o.haveLast {
		o.queueActionFor(o.lastEpisodeID, o.lastPosition, o.lastLength, models.SyncActionPlay)
	}

	o.lastSessionID = snap.SessionID
	if snap.EpisodeID != nil {
		o.lastEpisodeID = *snap.EpisodeID
	}
	o.lastPosition = snap.Position
	o.lastLength = snap.Length
	o.haveLast = true
}

func (o *Observer) onEnded() {
	if !o.haveLast {
		return
	}
	o.queueActionFor(o.lastEpisodeID, o.lastPosition, o.lastLength, models.SyncActionPlay)
}

func (o *Observer) queueActionFor(episodeID models.EpisodeID, pos, length time.Duration, kind models.SyncActionKind) {
	if episodeID == models.NilID {
		return
	}
	lib := o.lib.Current()
	ep, found := lib.EpisodeByID(episodeID)
	if !found {
		return
	}
	feed, found := lib.FeedByID(ep.FeedID)
	if !found {
		return
	}

	o.svc.QueueAction(models.SyncAction{
		PodcastURL: feed.URL,
		EpisodeURL: ep.AudioURL,
		Action:     kind,
		Timestamp:  time.Now(),
		PositionS:  int(pos / time.Second),
		TotalS:     int(length / time.Second),
	})
}
