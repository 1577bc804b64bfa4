package room

// Peer is the capability a room holds for another actor it can address —
// another replica, or the master. It carries no ownership of the peer, only
// the ability to deliver a wire line to it. Transports implement this over
// whatever socket fabric they use; pkg/room never sees connection state.
//
// Per the source's cyclic-reference design note, RoomState stores these
// capabilities in a directory keyed by id rather than embedding them in
// per-feature sets, so the same Peer is shared by actors, coordinator and
// beatmap entries without duplication.
type Peer interface {
	ID() string
	Send(line string) error
}
