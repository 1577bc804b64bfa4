package room

import (
	"testing"
)

// discardPeer is a Peer stub for the far end of a link this test doesn't
// care about observing (e.g. a dead coordinator that never replies).
type discardPeer struct{ id string }

func (p discardPeer) ID() string        { return p.id }
func (p discardPeer) Send(string) error { return nil }

func newTestRoom(selfID string, clock Clock, role Role) *Room {
	r := NewRoom(Config{SelfID: selfID}, clock)
	r.state.Role = role
	if role == RoleCoordinator {
		r.state.Phase = coordWaitingPhase()
	}
	return r
}

// TestLoneCoordinatorCommitsImmediately mirrors scenario S1: a single
// replica, id 0, commits "short" (len 5 <= 0+5) with no participants to
// vote.
func TestLoneCoordinatorCommitsImmediately(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("0", clock, RoleCoordinator)

	c.handleAddSong(AddSong{Name: "song-a", URL: "short"})

	if got := c.state.SongList["song-a"]; got != "short" {
		t.Fatalf("expected song-a committed locally, got %q", got)
	}
	if c.state.Phase.Kind != PhaseCoordCommitted {
		t.Fatalf("expected coordinator to settle in CoordCommitted, got %s", c.state.Phase.Kind)
	}
	if c.state.Role != RoleCoordinator {
		t.Fatalf("expected coordinator to remain Coordinator after a commit")
	}
}

// TestLocalAbortRuleRejectsSilently mirrors scenario S2: the coordinator's
// own application-level vote (§4.3's local-abort rule) rejects an Add
// whose URL is too long for its own id before any round starts — no
// master ack, per §9 open question 1 (resolved: preserve the silent
// drop).
func TestLocalAbortRuleRejectsSilently(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("0", clock, RoleCoordinator)

	var acked []string
	c.state.Master = recordingPeer{id: "master", sent: &acked}

	c.handleAddSong(AddSong{Name: "a", URL: "toolongurl"}) // len 10 > 0+5

	if c.state.Phase.Kind != PhaseCoordAborted {
		t.Fatalf("expected CoordAborted, got %s", c.state.Phase.Kind)
	}
	if _, ok := c.state.SongList["a"]; ok {
		t.Fatalf("song should not have been added")
	}
	if len(acked) != 0 {
		t.Fatalf("expected no message to master, got %v", acked)
	}
}

func TestThreeReplicaRoundCommits(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("0", clock, RoleCoordinator)
	p1 := newTestRoom("1", clock, RoleParticipant)
	p2 := newTestRoom("2", clock, RoleParticipant)

	LinkMemoryPeers(c, p1)
	LinkMemoryPeers(c, p2)

	now := clock.NowMs()
	c.state.Beatmap["1"] = BeatInfo{Role: RoleParticipant, Ref: c.state.Actors["1"], LastSeenMs: now}
	c.state.Beatmap["2"] = BeatInfo{Role: RoleParticipant, Ref: c.state.Actors["2"], LastSeenMs: now}

	c.handleAddSong(AddSong{Name: "song-a", URL: "ok"})
	if c.state.Phase.Kind != PhaseCoordInitCommit {
		t.Fatalf("expected coordinator waiting on votes, got %s", c.state.Phase.Kind)
	}

	pump(p1)
	pump(p2)
	pump(c)
	if c.state.Phase.Kind != PhaseCoordCommitable {
		t.Fatalf("expected coordinator waiting on acks, got %s", c.state.Phase.Kind)
	}

	pump(p1)
	pump(p2)
	pump(c)
	if c.state.Phase.Kind != PhaseCoordCommitted {
		t.Fatalf("expected coordinator to have committed, got %s", c.state.Phase.Kind)
	}

	pump(p1)
	pump(p2)

	for _, r := range []*Room{c, p1, p2} {
		if got := r.state.SongList["song-a"]; got != "ok" {
			t.Fatalf("replica %s missing committed song, got %q", r.state.SelfID, got)
		}
	}
	for _, r := range []*Room{p1, p2} {
		if r.state.Role != RoleObserver {
			t.Fatalf("replica %s expected to re-announce Observer after commit, got %s", r.state.SelfID, r.state.Role)
		}
	}
}

// TestParticipantVotesNo mirrors scenario S4: the coordinator's own vote
// passes, but a participant's does not (len(url) > participantID+5), so
// the round aborts through the normal broadcast path — master gets "ack
// abort", and the abort broadcast skips the No-voter.
func TestParticipantVotesNo(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("9", clock, RoleCoordinator) // threshold 14, passes
	p0 := newTestRoom("0", clock, RoleParticipant) // threshold 5, fails
	LinkMemoryPeers(c, p0)

	now := clock.NowMs()
	c.state.Beatmap["0"] = BeatInfo{Role: RoleParticipant, Ref: c.state.Actors["0"], LastSeenMs: now}

	var acked []string
	c.state.Master = recordingPeer{id: "master", sent: &acked}

	c.handleAddSong(AddSong{Name: "y", URL: "123456789"}) // len 9
	pump(p0) // votes no
	pump(c)  // aborts

	if c.state.Phase.Kind != PhaseCoordAborted {
		t.Fatalf("expected CoordAborted, got %s", c.state.Phase.Kind)
	}
	if len(acked) != 1 || acked[0] != "ack abort" {
		t.Fatalf("expected exactly one ack abort to master, got %v", acked)
	}
	if c.state.Role != RoleObserver {
		t.Fatalf("expected coordinator to step down to Observer after abort")
	}
	if p0.state.Phase.Kind != PhaseParticipantAborted {
		t.Fatalf("expected participant to settle in ParticipantAborted, got %s", p0.state.Phase.Kind)
	}
	if _, committed := c.state.SongList["y"]; committed {
		t.Fatalf("song should not have committed")
	}
}

func TestVoteReplyTimeoutAborts(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("0", clock, RoleCoordinator)
	p1 := newTestRoom("1", clock, RoleParticipant)
	LinkMemoryPeers(c, p1)

	now := clock.NowMs()
	c.state.Beatmap["1"] = BeatInfo{Role: RoleParticipant, Ref: c.state.Actors["1"], LastSeenMs: now}

	c.handleAddSong(AddSong{Name: "song-a", URL: "ok"})
	// p1's mailbox now holds the votereq, but we never pump it — it never
	// answers within the window.

	clock.Advance(c.cfg.AliveThreshold + 1)
	pump(c)

	if c.state.Phase.Kind != PhaseCoordAborted {
		t.Fatalf("expected coordinator to have aborted on vote timeout, got %s", c.state.Phase.Kind)
	}
	if _, committed := c.state.SongList["song-a"]; committed {
		t.Fatalf("song should not have committed after vote timeout")
	}
}

func TestAckPreCommitTimeoutStillCommits(t *testing.T) {
	clock := newFakeClock()
	c := newTestRoom("0", clock, RoleCoordinator)
	p1 := newTestRoom("1", clock, RoleParticipant)
	LinkMemoryPeers(c, p1)

	now := clock.NowMs()
	c.state.Beatmap["1"] = BeatInfo{Role: RoleParticipant, Ref: c.state.Actors["1"], LastSeenMs: now}

	c.handleAddSong(AddSong{Name: "song-a", URL: "ok"})
	pump(p1) // votes yes
	pump(c)  // sends precommit, now waiting on acks
	if c.state.Phase.Kind != PhaseCoordCommitable {
		t.Fatalf("expected coordinator waiting on acks, got %s", c.state.Phase.Kind)
	}

	// p1's ack is never pumped — simulate it stalling after voting yes.
	clock.Advance(c.cfg.AliveThreshold + 1)
	pump(c)

	if got := c.state.SongList["song-a"]; got != "ok" {
		t.Fatalf("coordinator should commit on ack timeout since all votes were yes, got %q", got)
	}
	if c.state.Phase.Kind != PhaseCoordCommitted {
		t.Fatalf("expected CoordCommitted, got %s", c.state.Phase.Kind)
	}
}

func TestElectionResolvesAfterCoordinatorFailure(t *testing.T) {
	clock := newFakeClock()
	p0 := newTestRoom("0", clock, RoleParticipant)
	p5 := newTestRoom("5", clock, RoleParticipant)
	LinkMemoryPeers(p0, p5)
	p0.AddPeer("9", discardPeer{"9"})
	p5.AddPeer("9", discardPeer{"9"})

	now := clock.NowMs()
	p0.state.Beatmap["5"] = BeatInfo{Role: RoleParticipant, Ref: p0.state.Actors["5"], LastSeenMs: now}
	p5.state.Beatmap["0"] = BeatInfo{Role: RoleParticipant, Ref: p5.state.Actors["0"], LastSeenMs: now}

	update := Update{Kind: UpdateAdd, Name: "song-a", URL: "ok"}
	p0.handleVoteReq(WireVoteReq{From: "9", Update: update})
	p5.handleVoteReq(WireVoteReq{From: "9", Update: update})

	// The coordinator vanishes before sending PreCommit. Both participants
	// time out waiting for it; "0" is the lower id and takes over.
	p0.handlePreCommitTimeout(PreCommitTimeout{SourceIter: p0.state.CommitIter})
	p5.handlePreCommitTimeout(PreCommitTimeout{SourceIter: p5.state.CommitIter})

	if p0.state.Role != RoleCoordinator {
		t.Fatalf("expected replica 0 to self-elect as coordinator")
	}
	if p5.state.Role == RoleCoordinator {
		t.Fatalf("expected replica 5 to remain a participant")
	}

	pump(p5) // answers statereq
	pump(p0) // collects reply, decides, re-broadcasts precommit
	pump(p5) // acks precommit
	pump(p0) // commits, broadcasts commit
	pump(p5) // applies commit

	for _, r := range []*Room{p0, p5} {
		if got := r.state.SongList["song-a"]; got != "ok" {
			t.Fatalf("replica %s missing committed song after election, got %q", r.state.SelfID, got)
		}
	}
}

// TestLowestIDWinsAmongThree mirrors scenario S6 with its literal id set:
// replicas {1, 2, 4}, coordinator 1 dies. 2 must win the election over 4
// purely because it has the lower id, and 4 must come to recognize 2 as
// its coordinator once 2 announces the role.
func TestLowestIDWinsAmongThree(t *testing.T) {
	clock := newFakeClock()
	p2 := newTestRoom("2", clock, RoleParticipant)
	p4 := newTestRoom("4", clock, RoleParticipant)
	LinkMemoryPeers(p2, p4)
	p2.AddPeer("1", discardPeer{"1"})
	p4.AddPeer("1", discardPeer{"1"})

	now := clock.NowMs()
	p2.state.Beatmap["4"] = BeatInfo{Role: RoleParticipant, Ref: p2.state.Actors["4"], LastSeenMs: now}
	p4.state.Beatmap["2"] = BeatInfo{Role: RoleParticipant, Ref: p4.state.Actors["2"], LastSeenMs: now}

	update := Update{Kind: UpdateAdd, Name: "song-b", URL: "ok"}
	p2.state.Phase = CommitPhase{Kind: PhaseParticipantCommitable, Update: update}
	p4.state.Phase = CommitPhase{Kind: PhaseParticipantCommitable, Update: update}

	// Coordinator 1 never followed up after PreCommit; both survivors hit
	// CommitTimeout and each independently runs the lowest-id election.
	p2.handleCommitTimeout(CommitTimeout{SourceIter: p2.state.CommitIter})
	p4.handleCommitTimeout(CommitTimeout{SourceIter: p4.state.CommitIter})

	if p2.state.Role != RoleCoordinator {
		t.Fatalf("expected replica 2 (lowest alive id) to self-elect as coordinator")
	}
	if p4.state.Role == RoleCoordinator {
		t.Fatalf("expected replica 4 to remain a participant")
	}

	pump(p4) // answers statereq with Committable
	pump(p2) // collects reply; both Committable, so decides Commit and broadcasts commit
	pump(p4)
	pump(p2)

	for _, r := range []*Room{p2, p4} {
		if got := r.state.SongList["song-b"]; got != "ok" {
			t.Fatalf("replica %s missing committed song after S6-style election, got %q", r.state.SelfID, got)
		}
	}

	// 4 adopts 2 as coordinator once 2's heartbeat announces the role,
	// independent of the termination protocol above.
	p4.handleHeartbeat(WireHeartbeat{From: "2", Role: RoleCoordinator})
	if p4.state.Coordinator == nil || p4.state.Coordinator.ID() != "2" {
		t.Fatalf("expected replica 4 to adopt replica 2 as coordinator")
	}
}

func TestAliveFiltersByRecencyAndRole(t *testing.T) {
	s := newRoomState("self")
	s.Beatmap["fresh"] = BeatInfo{Role: RoleParticipant, LastSeenMs: 1000}
	s.Beatmap["stale"] = BeatInfo{Role: RoleParticipant, LastSeenMs: 0}
	s.Beatmap["other-role"] = BeatInfo{Role: RoleObserver, LastSeenMs: 1000}

	got := s.alive(1000, 500, roleFilter(RoleParticipant))
	if _, ok := got["fresh"]; !ok {
		t.Fatalf("expected fresh entry to be alive")
	}
	if _, ok := got["stale"]; ok {
		t.Fatalf("expected stale entry to be excluded")
	}
	if _, ok := got["other-role"]; ok {
		t.Fatalf("expected other-role entry to be excluded by role filter")
	}
}

// recordingPeer is a Peer stub that appends every line it's sent, for
// asserting exactly what (if anything) reached the master.
type recordingPeer struct {
	id   string
	sent *[]string
}

func (p recordingPeer) ID() string { return p.id }
func (p recordingPeer) Send(line string) error {
	*p.sent = append(*p.sent, line)
	return nil
}
