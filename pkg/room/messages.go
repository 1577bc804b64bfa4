package room

// Message is anything that can be placed on a room's mailbox. All external
// requests, inter-replica protocol messages, self-addressed timeouts, and
// heartbeats implement it; the room processes exactly one to completion
// before dequeuing the next (§5).
type Message interface {
	isRoomMessage()
}

type baseMessage struct{}

func (baseMessage) isRoomMessage() {}

// --- External (master-facing) requests, §4.6 / §6 ---

type JoinMaster struct {
	baseMessage
	Master Peer
}

type AddSong struct {
	baseMessage
	Name string
	URL  string
}

type DeleteSong struct {
	baseMessage
	Name string
}

type GetSong struct {
	baseMessage
	Name string
}

type RequestFullState struct {
	baseMessage
}

// QuerySongList is the read-only snapshot request used by the GraphQL
// surface (§4.10). It never touches commitPhase or mutates SongList; the
// reply channel is buffered by the caller with capacity 1.
type QuerySongList struct {
	baseMessage
	Reply chan map[string]string
}

// --- Inbound protocol messages, decoded off the wire by a transport ---

// WireHeartbeat's Ref capability is deliberately not carried on the
// message: Actors is the one authoritative peer directory, populated at
// startup, so handleHeartbeat resolves From to a Peer by looking it up
// there rather than trusting a value a transport would otherwise have to
// attach after decoding.
type WireHeartbeat struct {
	baseMessage
	From string
	Role Role
}

type WireVoteReq struct {
	baseMessage
	From   string
	Update Update
}

type WireVoteReply struct {
	baseMessage
	From string
	Vote Vote
}

type WirePreCommit struct {
	baseMessage
	From string
}

type WireAckPreCommit struct {
	baseMessage
	From string
}

type WireCommit struct {
	baseMessage
	From string
}

type WireAbort struct {
	baseMessage
	From string
}

type WireStateReq struct {
	baseMessage
	From string
}

type WireStateReqReply struct {
	baseMessage
	From  string
	State CommitState
}

type WireFullStateRequest struct {
	baseMessage
	From string
}

type WireFullStateReply struct {
	baseMessage
	From     string
	SongList map[string]string
}

// --- Self-addressed timeouts, §4.2 ---

// DetermineCoordinator fires ~3000ms after startup per the bootstrap
// contract, §6.
type DetermineCoordinator struct {
	baseMessage
}

type VoteReplyTimeout struct {
	baseMessage
	SourceIter int
}

type AckPreCommitTimeout struct {
	baseMessage
	SourceIter int
}

type PreCommitTimeout struct {
	baseMessage
	SourceIter int
}

type CommitTimeout struct {
	baseMessage
	SourceIter int
}

type StateReqTimeout struct {
	baseMessage
	SourceIter int
}

type StateReqReplyTimeout struct {
	baseMessage
	SourceIter int
}

// HeartbeatTick is the recurring self-message that drives sending one
// heartbeat to one peer; see pkg/room/heartbeat.go.
type HeartbeatTick struct {
	baseMessage
	PeerID string
	Epoch  int
}
