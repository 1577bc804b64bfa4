package room

import (
	"fmt"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
)

// handleAddSong and handleDeleteSong are the only two entry points that
// start a 3PC round — §4.3.

func (r *Room) handleAddSong(m AddSong) {
	r.beginRound(Update{Kind: UpdateAdd, Name: m.Name, URL: m.URL})
}

func (r *Room) handleDeleteSong(m DeleteSong) {
	r.beginRound(Update{Kind: UpdateDelete, Name: m.Name})
}

// beginRound is the coordinator-only entry point for a new update. A
// replica not currently announcing Coordinator, or a coordinator already
// mid-round, rejects the request outright: the caller gets no round at
// all rather than a round racing an existing one.
func (r *Room) beginRound(u Update) {
	if r.state.Role != RoleCoordinator {
		r.log.Warn("update rejected: not coordinator", logging.String("role", r.state.Role.String()))
		return
	}
	if !r.state.Phase.Kind.idle() {
		r.log.Warn("update rejected: round already in flight", logging.String("phase", r.state.Phase.Kind.String()))
		return
	}

	if u.Kind == UpdateAdd && !votesYes(u, r.selfIDAsInt()) {
		// Local abort rule, §4.3 / §9 open question 1: the coordinator's own
		// application-level vote rejects this Add before a round ever
		// starts. No votereq is broadcast and the master is not notified —
		// the silent-drop behavior is preserved verbatim (see DESIGN.md).
		r.state.Phase = CommitPhase{Kind: PhaseCoordAborted, Update: u}
		return
	}

	upSet := peerRefs(r.state.alive(r.nowMs(), r.aliveThresholdMs(), roleFilter(RoleParticipant)))
	r.state.CommitIter++
	r.state.Phase = CommitPhase{
		Kind:    PhaseCoordInitCommit,
		Update:  u,
		UpSet:   upSet,
		VoteSet: make(map[string]struct{}),
	}

	if len(upSet) == 0 {
		// No live participants to vote: §4.3's lone-coordinator rule commits
		// immediately rather than waiting out a VoteReplyTimeout for no one.
		r.commitCoordinator()
		return
	}

	line := fmt.Sprintf("votereq %s", u.String())
	for id, p := range upSet {
		if err := p.Send(line); err != nil {
			r.log.Debug("votereq send failed", logging.String("peer", id), logging.Error(err))
		}
	}
	r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
		return VoteReplyTimeout{SourceIter: iter}
	})
}

func (r *Room) handleVoteReply(m WireVoteReply) {
	if r.state.Phase.Kind != PhaseCoordInitCommit {
		return
	}
	if _, inRound := r.state.Phase.UpSet[m.From]; !inRound {
		return
	}
	if m.Vote == VoteNo {
		// §4.3: abort goes to every member of upSet except the No-voter —
		// it already knows the outcome of its own vote.
		r.abortCoordinator(m.From)
		return
	}
	r.state.Phase.VoteSet[m.From] = struct{}{}
	if len(r.state.Phase.VoteSet) == len(r.state.Phase.UpSet) {
		r.broadcastPreCommit()
	}
}

// handleVoteReplyTimeout aborts the round: 3PC only proceeds past voting
// once every participant in the round's UpSet has voted Yes, so a missing
// vote is treated the same as an explicit No.
func (r *Room) handleVoteReplyTimeout(m VoteReplyTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.state.Phase.Kind != PhaseCoordInitCommit {
		return
	}
	r.abortCoordinator("")
}

func (r *Room) broadcastPreCommit() {
	r.state.Phase = CommitPhase{
		Kind:   PhaseCoordCommitable,
		Update: r.state.Phase.Update,
		UpSet:  r.state.Phase.UpSet,
		AckSet: make(map[string]struct{}),
	}
	for id, p := range r.state.Phase.UpSet {
		if err := p.Send("precommit"); err != nil {
			r.log.Debug("precommit send failed", logging.String("peer", id), logging.Error(err))
		}
	}
	r.scheduleTimeout(r.cfg.AliveThreshold, func(iter int) Message {
		return AckPreCommitTimeout{SourceIter: iter}
	})
}

func (r *Room) handleAckPreCommit(m WireAckPreCommit) {
	if r.state.Phase.Kind != PhaseCoordCommitable {
		return
	}
	if _, inRound := r.state.Phase.UpSet[m.From]; !inRound {
		return
	}
	r.state.Phase.AckSet[m.From] = struct{}{}
	if len(r.state.Phase.AckSet) == len(r.state.Phase.UpSet) {
		r.commitCoordinator()
	}
}

// handleAckPreCommitTimeout still commits. Every participant in UpSet
// already voted Yes before PreCommit was sent, so a missing ack can only
// mean a slow or dead participant — never one that will independently
// abort. Committing only to AckSet (and letting the termination protocol
// catch up any participant that missed the broadcast) preserves 3PC's
// non-blocking property while matching §4.3's literal "broadcast commit
// only to those in A" wording.
func (r *Room) handleAckPreCommitTimeout(m AckPreCommitTimeout) {
	if r.staleIter(m.SourceIter) {
		return
	}
	if r.state.Phase.Kind != PhaseCoordCommitable {
		return
	}
	targets := make(map[string]Peer, len(r.state.Phase.AckSet))
	for id := range r.state.Phase.AckSet {
		targets[id] = r.state.Phase.UpSet[id]
	}
	r.commitCoordinatorTo(targets)
}

// commitCoordinator applies the update, broadcasts the decision to the
// whole round UpSet, and settles in CoordCommitted.
func (r *Room) commitCoordinator() {
	r.commitCoordinatorTo(r.state.Phase.UpSet)
}

// commitCoordinatorTo is commitCoordinator parameterized by the broadcast
// target set, so handleAckPreCommitTimeout can restrict "commit" to only
// the participants that acked PreCommit. CoordCommitted is terminal but
// idle() per §4.3, so a later AddSong/DeleteSong reuses this same replica
// as coordinator without ever needing to reset back to CoordWaiting
// explicitly.
func (r *Room) commitCoordinatorTo(targets map[string]Peer) {
	u := r.state.Phase.Update
	r.applyUpdate(u)
	for id, p := range targets {
		if err := p.Send("commit"); err != nil {
			r.log.Debug("commit send failed", logging.String("peer", id), logging.Error(err))
		}
	}
	r.state.CommitIter++
	r.ackMasterCommit()
	r.recordDecision("commit", u)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordCommitRound("commit", 0)
	}
	r.state.Phase = CommitPhase{Kind: PhaseCoordCommitted, Update: u}
}

// abortCoordinator broadcasts abort and settles in CoordAborted, then
// re-announces Observer — §4.3: a coordinator that aborts a round steps
// down rather than staying Coordinator for the next one. Nothing here
// promotes a replacement: DetermineCoordinator runs once after Start, and
// elections start only from a participant's PreCommit or Commit timeout.
// excludeID, when non-empty, is skipped — the No-voter that caused the
// abort already knows the outcome.
func (r *Room) abortCoordinator(excludeID string) {
	u := r.state.Phase.Update
	upSet := r.state.Phase.UpSet
	for id, p := range upSet {
		if id == excludeID {
			continue
		}
		if err := p.Send("abort"); err != nil {
			r.log.Debug("abort send failed", logging.String("peer", id), logging.Error(err))
		}
	}
	r.state.CommitIter++
	r.ackMasterAbort()
	r.recordDecision("abort", u)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordCommitRound("abort", 0)
	}
	r.state.Phase = CommitPhase{Kind: PhaseCoordAborted, Update: u}
	r.becomeObserver()
}
