// Package room implements the replicated songlist state machine: the 3PC
// coordinator/participant roles, the heartbeat-driven failure detector, and
// the election/termination protocol that recovers from coordinator
// failure. Everything here is a single-threaded cooperative actor — one
// mailbox, one goroutine, no locks.
package room

import (
	"fmt"
	"time"

	"github.com/cluso-labs/songlist3pc/pkg/dtlog"
	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/cluso-labs/songlist3pc/pkg/metrics"
)

// Config configures a Room. BeatRate and AliveThreshold mirror spec.md §4.1
// and §4.2: the heartbeat send interval, and the liveness/timeout window.
type Config struct {
	SelfID           string
	BeatRate         time.Duration
	AliveThreshold   time.Duration
	BootstrapDelay   time.Duration // default 3s, §6 bootstrap contract
	Logger           logging.Logger
	Metrics          *metrics.Registry
	DTLog            dtlog.Log
}

func (c *Config) setDefaults() {
	if c.BeatRate <= 0 {
		c.BeatRate = 500 * time.Millisecond
	}
	if c.AliveThreshold <= 0 {
		c.AliveThreshold = 3 * c.BeatRate
	}
	if c.BootstrapDelay <= 0 {
		c.BootstrapDelay = 3000 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	if c.DTLog == nil {
		c.DTLog = dtlog.NewMemory(0)
	}
}

// Room is a single replica's 3PC actor.
type Room struct {
	cfg   Config
	clock Clock
	state *RoomState

	mailbox chan Message
	stop    chan struct{}

	// beatEpoch is bumped every time heartbeat schedules are torn down and
	// rebuilt (role change). A HeartbeatTick whose Epoch is stale is
	// dropped even if its Timer.Stop() raced with delivery.
	beatEpoch int

	// electionStates accumulates StateReqReply results while this replica
	// is running the termination protocol as the newly elected
	// coordinator. Nil whenever no election is in progress.
	electionStates map[string]CommitState

	log logging.Logger
}

// NewRoom constructs a Room in the initial Start phase, Participant role,
// with an empty songlist. Peers must be added with AddPeer before Start.
func NewRoom(cfg Config, clock Clock) *Room {
	cfg.setDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	r := &Room{
		cfg:     cfg,
		clock:   clock,
		state:   newRoomState(cfg.SelfID),
		mailbox: make(chan Message, 256),
		stop:    make(chan struct{}),
		log:     cfg.Logger.With(logging.String("component", "room"), logging.String("self_id", cfg.SelfID)),
	}
	return r
}

// AddPeer registers a peer replica in the directory before Start is called.
func (r *Room) AddPeer(id string, p Peer) {
	r.state.Actors[id] = p
}

// Send enqueues a message on the mailbox. Safe to call from any goroutine;
// it never blocks the caller on protocol logic, only on a full mailbox.
func (r *Room) Send(msg Message) {
	select {
	case r.mailbox <- msg:
	case <-r.stop:
	}
}

// Start launches the mailbox loop and the bootstrap timer.
func (r *Room) Start() {
	go r.run()
	r.restartHeartbeats()
	r.scheduleTimeout(r.cfg.BootstrapDelay, func(iter int) Message {
		return DetermineCoordinator{}
	})
}

// Stop halts the mailbox loop. Outstanding timers still fire harmlessly:
// once the stop channel is closed, Send() returns instead of waiting on a
// mailbox nobody drains.
func (r *Room) Stop() {
	close(r.stop)
	r.cancelHeartbeats()
}

func (r *Room) run() {
	for {
		select {
		case msg := <-r.mailbox:
			r.handle(msg)
		case <-r.stop:
			return
		}
	}
}

func (r *Room) handle(msg Message) {
	switch m := msg.(type) {
	case JoinMaster:
		r.handleJoinMaster(m)
	case AddSong:
		r.handleAddSong(m)
	case DeleteSong:
		r.handleDeleteSong(m)
	case GetSong:
		r.handleGetSong(m)
	case RequestFullState:
		r.handleRequestFullState(m)
	case QuerySongList:
		r.handleQuerySongList(m)

	case WireHeartbeat:
		r.handleHeartbeat(m)
	case WireVoteReq:
		r.handleVoteReq(m)
	case WireVoteReply:
		r.handleVoteReply(m)
	case WirePreCommit:
		r.handlePreCommit(m)
	case WireAckPreCommit:
		r.handleAckPreCommit(m)
	case WireCommit:
		r.handleDecision(m.From, DecisionCommit)
	case WireAbort:
		r.handleDecision(m.From, DecisionAbort)
	case WireStateReq:
		r.handleStateReq(m)
	case WireStateReqReply:
		r.handleStateReqReply(m)
	case WireFullStateRequest:
		r.handleFullStateRequest(m)
	case WireFullStateReply:
		r.handleFullStateReply(m)

	case DetermineCoordinator:
		r.handleDetermineCoordinator(m)
	case VoteReplyTimeout:
		r.handleVoteReplyTimeout(m)
	case AckPreCommitTimeout:
		r.handleAckPreCommitTimeout(m)
	case PreCommitTimeout:
		r.handlePreCommitTimeout(m)
	case CommitTimeout:
		r.handleCommitTimeout(m)
	case StateReqTimeout:
		r.handleStateReqTimeout(m)
	case StateReqReplyTimeout:
		r.handleStateReqReplyTimeout(m)
	case HeartbeatTick:
		r.handleHeartbeatTick(m)

	default:
		r.log.Warn("unhandled message type", logging.String("type", fmt.Sprintf("%T", msg)))
	}
}

// currentIter reports the commit iteration a freshly scheduled timeout
// should be tagged with.
func (r *Room) currentIter() int {
	return r.state.CommitIter
}

// staleIter reports whether a timeout tagged sourceIter has been
// superseded by a later round — §4.2 / invariant 5.
func (r *Room) staleIter(sourceIter int) bool {
	return sourceIter != r.state.CommitIter
}

func (r *Room) nowMs() int64 {
	return r.clock.NowMs()
}

func (r *Room) aliveThresholdMs() int64 {
	return r.cfg.AliveThreshold.Milliseconds()
}

// scheduleTimeout schedules build(sourceIter) for delivery to this room's
// own mailbox after d. build receives the iteration live at schedule time,
// matching §4.2's "each timeout variant carries the iteration it was
// scheduled under."
func (r *Room) scheduleTimeout(d time.Duration, build func(sourceIter int) Message) Timer {
	iter := r.state.CommitIter
	return r.clock.AfterFunc(d, func() {
		r.Send(build(iter))
	})
}
