package room

import (
	"github.com/cluso-labs/songlist3pc/pkg/logging"
)

// startElection is entered by a participant that suspects the coordinator
// has failed (§4.5). Exactly one alive participant — the one with the
// lowest id — takes over as coordinator and runs the termination
// protocol; everyone else waits, ready to re-run election if that one
// also turns out to be unreachable.
func (r *Room) startElection() {
	prevPhase := r.state.Phase
	aliveParticipants := r.state.alive(r.nowMs(), r.aliveThresholdMs(), roleFilter(RoleParticipant))

	lowest := r.state.SelfID
	for id := range aliveParticipants {
		if id < lowest {
			lowest = id
		}
	}

	if lowest != r.state.SelfID {
		r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
			return StateReqTimeout{SourceIter: iter}
		})
		return
	}

	r.becomeElectedCoordinator(prevPhase, aliveParticipants)
}

func (r *Room) becomeElectedCoordinator(prevPhase CommitPhase, aliveParticipants map[string]BeatInfo) {
	r.log.Info("elected as coordinator", logging.Int("alive_participants", len(aliveParticipants)))
	r.state.Role = RoleCoordinator
	r.restartHeartbeats()
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordElection("won")
	}

	upSet := peerRefs(aliveParticipants)
	r.state.CommitIter++
	r.state.Phase = CommitPhase{Kind: PhaseCoordWaiting, Update: prevPhase.Update, UpSet: upSet}

	r.electionStates = map[string]CommitState{r.state.SelfID: commitStateOf(prevPhase.Kind)}
	for id, p := range upSet {
		if err := p.Send("statereq"); err != nil {
			r.log.Debug("statereq send failed", logging.String("peer", id), logging.Error(err))
		}
	}
	r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
		return StateReqReplyTimeout{SourceIter: iter}
	})
}

func (r *Room) handleStateReq(m WireStateReq) {
	peer, ok := r.state.Actors[m.From]
	if !ok {
		return
	}
	cs := commitStateOf(r.state.Phase.Kind)
	if err := peer.Send("state " + cs.String()); err != nil {
		r.log.Debug("state reply send failed", logging.String("peer", m.From), logging.Error(err))
	}
}

func (r *Room) handleStateReqReply(m WireStateReqReply) {
	if r.electionStates == nil {
		return
	}
	if _, inRound := r.state.Phase.UpSet[m.From]; !inRound {
		return
	}
	r.electionStates[m.From] = m.State
	if len(r.electionStates) == len(r.state.Phase.UpSet)+1 {
		r.decideTermination()
	}
}

// handleStateReqReplyTimeout decides with whatever replies arrived.
// Replicas that never answered are excluded from the vote rather than
// assumed uncertain, since they may simply be dead and will catch up via
// a later election round if they come back.
func (r *Room) handleStateReqReplyTimeout(m StateReqReplyTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.electionStates == nil {
		return
	}
	r.decideTermination()
}

// handleStateReqTimeout fires for a non-elected replica that has been
// waiting passively. If the round still hasn't resolved, the elected
// replica may itself have failed; re-run election against the current
// alive set.
func (r *Room) handleStateReqTimeout(m StateReqTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.state.Phase.Kind.terminal() {
		return
	}
	r.startElection()
}

// decideTermination applies the §4.5 rule over collected CommitStates:
// any Committed wins outright, else any Aborted wins, else if every
// replica reports Committable the round commits, else (some replica is
// still Uncertain) PreCommit is re-broadcast and the round waits again
// for acks before committing.
func (r *Room) decideTermination() {
	states := r.electionStates
	r.electionStates = nil

	anyCommitted, anyAborted, allCommittable := false, false, true
	for _, s := range states {
		switch s {
		case StateCommitted:
			anyCommitted = true
		case StateAborted:
			anyAborted = true
		}
		if s != StateCommittable && s != StateCommitted {
			allCommittable = false
		}
	}

	switch {
	case anyCommitted:
		r.commitCoordinator()
	case anyAborted:
		r.abortCoordinator("")
	case allCommittable:
		r.commitCoordinator()
	default:
		r.broadcastPreCommit()
	}
}
