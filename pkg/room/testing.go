package room

// MemoryPeer delivers wire lines directly into a target Room's mailbox,
// decoding them with DecodeWireLine as if they had come off a real
// socket. It exists so room's own tests can wire up small multi-replica
// clusters without any network transport.
//
// A MemoryPeer is one directed half of a link: fromID is the id of the
// room that holds this capability (the sender), target is the room on
// the other end, and remoteID is target's own id — returned by ID() so
// the holder can key its Actors directory by it. Two rooms wired to talk
// to each other need one MemoryPeer each, with fromID/remoteID swapped.
type MemoryPeer struct {
	fromID   string
	remoteID string
	target   *Room
}

// NewMemoryPeer builds the fromID side's capability to reach target,
// whose own id is remoteID.
func NewMemoryPeer(fromID, remoteID string, target *Room) *MemoryPeer {
	return &MemoryPeer{fromID: fromID, remoteID: remoteID, target: target}
}

func (p *MemoryPeer) ID() string { return p.remoteID }

func (p *MemoryPeer) Send(line string) error {
	msg, err := DecodeWireLine(p.fromID, line)
	if err != nil {
		return err
	}
	p.target.Send(msg)
	return nil
}

// LinkMemoryPeers wires a and b to address each other bidirectionally.
func LinkMemoryPeers(a *Room, b *Room) {
	a.AddPeer(b.state.SelfID, NewMemoryPeer(a.state.SelfID, b.state.SelfID, b))
	b.AddPeer(a.state.SelfID, NewMemoryPeer(b.state.SelfID, a.state.SelfID, a))
}
