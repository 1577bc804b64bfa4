package room

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/cluso-labs/songlist3pc/pkg/dtlog"
)

// selfIDAsInt parses selfID as the integer the application vote rule
// compares URL lengths against. §3 guarantees selfID orders as a
// non-negative integer.
func (r *Room) selfIDAsInt() int {
	n, _ := strconv.Atoi(r.state.SelfID)
	return n
}

// votesYes is the application-level vote rule from §4.3/§4.4: a replica
// with id d votes No on Add(_, url) iff len(url) > d+5. Delete is always a
// Yes — invariant 6.
func votesYes(u Update, selfID int) bool {
	if u.Kind != UpdateAdd {
		return true
	}
	return len(u.URL) <= selfID+5
}

// becomeObserver re-announces this replica as an Observer once its
// involvement in the current round has reached a terminal outcome —
// every terminal transition in §4.3/§4.4 except a coordinator's commit
// and the coordinator's local abort in beginRound does this, per the
// Observer definition in the GLOSSARY: a replica that does not vote in the
// current round, still heartbeats, still serves Get.
func (r *Room) becomeObserver() {
	r.state.Role = RoleObserver
	r.restartHeartbeats()
}

// peerRefs projects a beatmap submap down to the Peer capabilities it
// references, for building a round's UpSet.
func peerRefs(infos map[string]BeatInfo) map[string]Peer {
	out := make(map[string]Peer, len(infos))
	for id, info := range infos {
		out[id] = info.Ref
	}
	return out
}

// applyUpdate mutates the local songlist. It is only ever called from a
// Commit transition, never speculatively.
func (r *Room) applyUpdate(u Update) {
	switch u.Kind {
	case UpdateAdd:
		r.state.SongList[u.Name] = u.URL
	case UpdateDelete:
		delete(r.state.SongList, u.Name)
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.SetSongListSize(len(r.state.SongList))
	}
}

// recordDecision appends a best-effort dtlog entry for the round that just
// reached a terminal decision.
func (r *Room) recordDecision(decision string, u Update) {
	r.cfg.DTLog.Append(context.Background(), dtlog.Entry{
		ID:         uuid.NewString(),
		RoomID:     r.state.SelfID,
		CommitIter: r.state.CommitIter,
		Decision:   decision,
		Update:     u.String(),
		AtMs:       r.nowMs(),
	})
}
