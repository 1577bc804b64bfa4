package room

import (
	"fmt"
	"time"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
)

// restartHeartbeats cancels every outstanding per-peer heartbeat timer and
// reschedules one for each known peer. Called on startup and on any role
// change, since the announced role line changes — §4.1.
func (r *Room) restartHeartbeats() {
	r.cancelHeartbeats()
	epoch := r.beatEpoch
	for id := range r.state.Actors {
		r.scheduleHeartbeatTick(id, epoch, r.cfg.BeatRate)
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.SetRole(r.state.Role.String())
	}
}

// cancelHeartbeats stops every outstanding per-peer timer and bumps the
// epoch, so any HeartbeatTick already queued on the mailbox from the old
// schedule is recognized as stale and dropped rather than double-scheduling.
func (r *Room) cancelHeartbeats() {
	for _, t := range r.state.BeatCancels {
		t.Stop()
	}
	r.state.BeatCancels = make(map[string]Timer)
	r.beatEpoch++
}

func (r *Room) scheduleHeartbeatTick(peerID string, epoch int, delay time.Duration) {
	t := r.clock.AfterFunc(delay, func() {
		r.Send(HeartbeatTick{PeerID: peerID, Epoch: epoch})
	})
	r.state.BeatCancels[peerID] = t
}

// handleHeartbeatTick sends one heartbeat line to one peer and reschedules
// itself. A tick whose Epoch doesn't match the live epoch belongs to a
// schedule that was already torn down by a role change; it is dropped.
func (r *Room) handleHeartbeatTick(m HeartbeatTick) {
	if m.Epoch != r.beatEpoch {
		return
	}
	peer, ok := r.state.Actors[m.PeerID]
	if !ok {
		return
	}
	line := fmt.Sprintf("heartbeat %s %s", r.state.Role.String(), r.state.SelfID)
	if err := peer.Send(line); err != nil {
		r.log.Debug("heartbeat send failed", logging.String("peer", m.PeerID), logging.Error(err))
	} else if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordHeartbeatSent(m.PeerID)
	}
	r.scheduleHeartbeatTick(m.PeerID, m.Epoch, r.cfg.BeatRate)
}

// handleHeartbeat updates the beatmap entry for the sender and, if it is
// the announced coordinator, tracks it as such. The beatmap never evicts
// entries — liveness is judged solely by LastSeenMs recency (§4.1).
func (r *Room) handleHeartbeat(m WireHeartbeat) {
	ref, known := r.state.Actors[m.From]
	if !known {
		r.log.Warn("heartbeat from unconfigured peer", logging.String("peer", m.From))
		return
	}

	now := r.nowMs()
	r.state.Beatmap[m.From] = BeatInfo{Role: m.Role, Ref: ref, LastSeenMs: now}

	if m.Role == RoleCoordinator {
		r.state.Coordinator = ref
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordHeartbeatReceived(m.From)
		r.cfg.Metrics.SetAliveParticipants(len(r.state.alive(now, r.aliveThresholdMs(), roleFilter(RoleParticipant))))
	}
}
