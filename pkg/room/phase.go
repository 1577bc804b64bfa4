package room

// PhaseKind tags which CommitPhase variant is live. Handlers match on
// (message, PhaseKind) jointly; a message that arrives in a phase its
// handler does not expect is dropped without panicking and without a log
// line.
type PhaseKind int

const (
	PhaseStart PhaseKind = iota
	PhaseCoordWaiting
	PhaseCoordInitCommit
	PhaseCoordCommitable
	PhaseCoordCommitted
	PhaseCoordAborted
	PhaseParticipantInitCommit
	PhaseParticipantCommitable
	PhaseParticipantCommitted
	PhaseParticipantAborted
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseStart:
		return "Start"
	case PhaseCoordWaiting:
		return "CoordWaiting"
	case PhaseCoordInitCommit:
		return "CoordInitCommit"
	case PhaseCoordCommitable:
		return "CoordCommitable"
	case PhaseCoordCommitted:
		return "CoordCommitted"
	case PhaseCoordAborted:
		return "CoordAborted"
	case PhaseParticipantInitCommit:
		return "ParticipantInitCommit"
	case PhaseParticipantCommitable:
		return "ParticipantCommitable"
	case PhaseParticipantCommitted:
		return "ParticipantCommitted"
	case PhaseParticipantAborted:
		return "ParticipantAborted"
	default:
		return "Unknown"
	}
}

func (k PhaseKind) terminal() bool {
	switch k {
	case PhaseCoordCommitted, PhaseCoordAborted, PhaseParticipantCommitted, PhaseParticipantAborted:
		return true
	default:
		return false
	}
}

// idle reports whether a coordinator sitting in this phase may accept a
// new AddSong/DeleteSong request. A round in progress (anything between
// InitCommit and the terminal states) rejects new updates.
func (k PhaseKind) idle() bool {
	return k == PhaseStart || k == PhaseCoordWaiting || k.terminal()
}

// commitStateOf maps a phase kind to the CommitState a replica reports in
// a StateReqReply during the termination protocol (§4.5).
func commitStateOf(k PhaseKind) CommitState {
	switch k {
	case PhaseCoordInitCommit, PhaseParticipantInitCommit:
		return StateUncertain
	case PhaseCoordCommitable, PhaseParticipantCommitable:
		return StateCommittable
	case PhaseCoordCommitted, PhaseParticipantCommitted:
		return StateCommitted
	default:
		return StateAborted
	}
}

// CommitPhase is the tagged variant from §3. Only the fields relevant to
// Kind are meaningful; the zero value is PhaseStart.
type CommitPhase struct {
	Kind PhaseKind

	Update Update

	// UpSet is the alive-participant snapshot taken at VoteReq time. Fixed
	// for the lifetime of the round regardless of later liveness changes.
	UpSet map[string]Peer

	// VoteSet accumulates Yes voters during CoordInitCommit. VoteSet is
	// always a subset of UpSet.
	VoteSet map[string]struct{}

	// AckSet accumulates PreCommit acks during CoordCommitable.
	AckSet map[string]struct{}
}

func startPhase() CommitPhase {
	return CommitPhase{Kind: PhaseStart}
}

func coordWaitingPhase() CommitPhase {
	return CommitPhase{Kind: PhaseCoordWaiting}
}

func copyUpSet(upSet map[string]Peer) map[string]Peer {
	out := make(map[string]Peer, len(upSet))
	for id, p := range upSet {
		out[id] = p
	}
	return out
}
