package room

import (
	"fmt"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
)

// handleJoinMaster registers the master's capability and, if this replica
// is already the announced coordinator, tells the master so immediately
// rather than waiting for the master to discover it via heartbeats — §4.6.
func (r *Room) handleJoinMaster(m JoinMaster) {
	r.state.Master = m.Master
	if r.state.Role == RoleCoordinator {
		r.announceCoordinatorToMaster()
	}
}

func (r *Room) announceCoordinatorToMaster() {
	if r.state.Master == nil {
		return
	}
	if err := r.state.Master.Send(fmt.Sprintf("coordinator %s", r.state.SelfID)); err != nil {
		r.log.Debug("coordinator announcement to master failed", logging.Error(err))
	}
}

// ackMasterCommit/ackMasterAbort are the terminal-transition replies to
// the master named in §6 — every coordinator commit or abort decision
// that actually ran a round (broadcast votereq/abort) notifies the
// master this way. The one exception is the local-abort rule in
// beginRound, which by design sends neither (§9 open question 1).

func (r *Room) ackMasterCommit() {
	if r.state.Master == nil {
		return
	}
	if err := r.state.Master.Send("ack commit"); err != nil {
		r.log.Debug("ack commit to master failed", logging.Error(err))
	}
}

func (r *Room) ackMasterAbort() {
	if r.state.Master == nil {
		return
	}
	if err := r.state.Master.Send("ack abort"); err != nil {
		r.log.Debug("ack abort to master failed", logging.Error(err))
	}
}

// handleGetSong answers a single-song lookup directly to the master. A
// missing song replies "resp NONE" rather than an error — an absent song
// is a valid, unexceptional answer. The master already knows which name
// it asked for, so the reply carries only the url.
func (r *Room) handleGetSong(m GetSong) {
	if r.state.Master == nil {
		return
	}
	url, ok := r.state.SongList[m.Name]
	line := "resp NONE"
	if ok {
		line = fmt.Sprintf("resp %s", url)
	}
	if err := r.state.Master.Send(line); err != nil {
		r.log.Debug("get song reply failed", logging.Error(err))
	}
}

// handleRequestFullState answers a master fullstate request with the one
// "songlist" line, the same full-state wire format used peer-to-peer.
func (r *Room) handleRequestFullState(_ RequestFullState) {
	if r.state.Master == nil {
		return
	}
	if err := r.state.Master.Send(encodeSongList(r.state.SongList)); err != nil {
		r.log.Debug("full state reply failed", logging.Error(err))
	}
}

// handleQuerySongList answers the in-process read-only query path used by
// the GraphQL surface (§4.10). It never mutates commitPhase.
func (r *Room) handleQuerySongList(m QuerySongList) {
	out := make(map[string]string, len(r.state.SongList))
	for k, v := range r.state.SongList {
		out[k] = v
	}
	select {
	case m.Reply <- out:
	default:
	}
}

// handleFullStateRequest/handleFullStateReply let a replica that just
// joined, or that fell behind during a network partition, catch up its
// songlist from a peer without going through a 3PC round — a plain
// best-effort copy, not a protocol-safety mechanism.

func (r *Room) handleFullStateRequest(m WireFullStateRequest) {
	peer, ok := r.state.Actors[m.From]
	if !ok {
		return
	}
	out := make(map[string]string, len(r.state.SongList))
	for k, v := range r.state.SongList {
		out[k] = v
	}
	if err := peer.Send(encodeSongList(out)); err != nil {
		r.log.Debug("full state reply failed", logging.String("peer", m.From), logging.Error(err))
	}
}

func (r *Room) handleFullStateReply(m WireFullStateReply) {
	for name, url := range m.SongList {
		if _, exists := r.state.SongList[name]; !exists {
			r.state.SongList[name] = url
		}
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.SetSongListSize(len(r.state.SongList))
	}
}
