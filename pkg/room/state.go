package room

// BeatInfo is one beatmap entry: the last-announced role and capability
// for a peer id, and the clock reading of its most recent heartbeat.
type BeatInfo struct {
	Role       Role
	Ref        Peer
	LastSeenMs int64
}

// RoomState is owned exclusively by the room's mailbox loop; nothing else
// ever reads or writes it. See §5 of the protocol: single-threaded
// cooperative actor, no locking.
type RoomState struct {
	SelfID string

	// Actors is the directory of peer replicas this replica knows about,
	// keyed by id. Entries are capabilities (Peer), not ownership.
	Actors map[string]Peer

	Coordinator Peer
	Master      Peer

	Beatmap map[string]BeatInfo

	// BeatCancels holds the outstanding per-peer heartbeat send timer so it
	// can be stopped before a fresh schedule replaces it on a role change.
	BeatCancels map[string]Timer

	Role  Role
	Phase CommitPhase

	// CommitIter is a monotonically increasing round counter. Every
	// scheduled timeout carries the iteration it was scheduled under;
	// mismatches on delivery are stale and are dropped.
	CommitIter int

	SongList map[string]string
}

func newRoomState(selfID string) *RoomState {
	return &RoomState{
		SelfID:      selfID,
		Actors:      make(map[string]Peer),
		Beatmap:     make(map[string]BeatInfo),
		BeatCancels: make(map[string]Timer),
		Role:        RoleParticipant,
		Phase:       startPhase(),
		SongList:    make(map[string]string),
	}
}

// alive returns the submap of Beatmap whose LastSeenMs is within
// aliveThresholdMs of now, optionally filtered to a single role. This is
// the only definition of "up" used anywhere in the room — §4.1.
func (s *RoomState) alive(now int64, aliveThresholdMs int64, role *Role) map[string]BeatInfo {
	out := make(map[string]BeatInfo)
	for id, info := range s.Beatmap {
		if now-info.LastSeenMs >= aliveThresholdMs {
			continue
		}
		if role != nil && info.Role != *role {
			continue
		}
		out[id] = info
	}
	return out
}

func roleFilter(r Role) *Role {
	return &r
}
