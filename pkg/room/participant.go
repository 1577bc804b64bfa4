package room

import (
	"fmt"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
)

// handleVoteReq is the participant side of §4.3/§4.4: the vote is the
// application-level rule (Add votes No iff its URL is too long for this
// replica's id; Delete always votes Yes), guarded by the idle check so a
// replica already mid-round with someone else never double-votes — that
// cannot legitimately happen under a single live coordinator but is
// guarded against anyway.
func (r *Room) handleVoteReq(m WireVoteReq) {
	coordinator, ok := r.state.Actors[m.From]
	if !ok {
		panic(fmt.Sprintf("room %s: votereq from unknown coordinator %s", r.state.SelfID, m.From))
	}
	vote := VoteNo
	if r.state.Phase.Kind.idle() && votesYes(m.Update, r.selfIDAsInt()) {
		vote = VoteYes
	}

	voteLine := "votereply no"
	if vote == VoteYes {
		voteLine = "votereply yes"
	}
	if err := coordinator.Send(voteLine); err != nil {
		r.log.Debug("vote send failed", logging.String("coordinator", m.From), logging.Error(err))
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordVote(vote.String())
	}
	if vote == VoteNo {
		// §4.4: a No vote never enters a round at all — it settles straight
		// into ParticipantAborted and re-announces Observer.
		r.state.Phase = CommitPhase{Kind: PhaseParticipantAborted, Update: m.Update}
		r.becomeObserver()
		return
	}

	r.state.Coordinator = coordinator
	r.state.CommitIter++
	r.state.Phase = CommitPhase{Kind: PhaseParticipantInitCommit, Update: m.Update}
	r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
		return PreCommitTimeout{SourceIter: iter}
	})
}

func (r *Room) handlePreCommit(m WirePreCommit) {
	if r.state.Phase.Kind != PhaseParticipantInitCommit {
		return
	}
	coordinator, ok := r.state.Actors[m.From]
	if !ok {
		coordinator = r.state.Coordinator
	}
	r.state.Phase.Kind = PhaseParticipantCommitable
	if coordinator != nil {
		if err := coordinator.Send("ackprecommit"); err != nil {
			r.log.Debug("ackprecommit send failed", logging.Error(err))
		}
	}
	r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
		return CommitTimeout{SourceIter: iter}
	})
}

// handleDecision applies a Commit/Abort broadcast from the coordinator.
// It is also the path a late-joining participant takes when the
// termination protocol resolves its uncertainty.
func (r *Room) handleDecision(from string, d Decision) {
	switch r.state.Phase.Kind {
	case PhaseParticipantInitCommit, PhaseParticipantCommitable:
	default:
		return
	}
	r.log.Debug("decision received", logging.String("from", from), logging.String("decision", d.String()))
	switch d {
	case DecisionCommit:
		r.applyUpdate(r.state.Phase.Update)
		r.recordDecision("commit", r.state.Phase.Update)
		r.state.Phase.Kind = PhaseParticipantCommitted
	case DecisionAbort:
		r.recordDecision("abort", r.state.Phase.Update)
		r.state.Phase.Kind = PhaseParticipantAborted
	}
	r.state.CommitIter++
	r.becomeObserver()
}

// handlePreCommitTimeout means the coordinator hasn't followed the Yes
// vote with a PreCommit within the alive window. If the coordinator is
// still announcing heartbeats it is just slow, not dead — §4.4 says to
// no-op and wait rather than running an election against a live
// coordinator, which would risk electing a second one mid-round.
func (r *Room) handlePreCommitTimeout(m PreCommitTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.state.Phase.Kind != PhaseParticipantInitCommit {
		return
	}
	if r.coordinatorAlive() {
		return
	}
	r.startElection()
}

// handleCommitTimeout means this replica acked PreCommit but never heard
// the terminal decision: the defining 3PC "uncertain" window. The same
// aliveness gate applies — only run the election/termination protocol if
// the coordinator has actually dropped out of the beatmap.
func (r *Room) handleCommitTimeout(m CommitTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.state.Phase.Kind != PhaseParticipantCommitable {
		return
	}
	if r.coordinatorAlive() {
		return
	}
	r.startElection()
}

// coordinatorAlive reports whether the current coordinator has a recent
// enough heartbeat to still count as up (§4.1). No known coordinator is
// never "alive".
func (r *Room) coordinatorAlive() bool {
	if r.state.Coordinator == nil {
		return false
	}
	alive := r.state.alive(r.nowMs(), r.aliveThresholdMs(), roleFilter(RoleCoordinator))
	_, ok := alive[r.state.Coordinator.ID()]
	return ok
}
