package transport

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/cluso-labs/songlist3pc/pkg/room"
)

// SocketPeer is a room.Peer backed by one Socket. Send writes one line;
// inbound lines are read by a separate goroutine started by Link.
type SocketPeer struct {
	id   string
	sock Socket
}

func (p *SocketPeer) ID() string { return p.id }

func (p *SocketPeer) Send(line string) error {
	return p.sock.Send(append([]byte(line), '\n'))
}

// Link connects a pair socket for peerID — dialing addr if dial is true,
// listening on addr otherwise — wraps it as a SocketPeer, registers it
// with target via AddPeer, and starts the read loop that decodes inbound
// lines and delivers them to target's mailbox.
func Link(factory SocketFactory, target *room.Room, peerID, addr string, dial bool, log logging.Logger) (*SocketPeer, error) {
	sock, err := factory.NewPairSocket()
	if err != nil {
		return nil, fmt.Errorf("transport: new socket for %s: %w", peerID, err)
	}

	if dial {
		if err := sock.Dial(addr); err != nil {
			sock.Close()
			return nil, fmt.Errorf("transport: dial %s at %s: %w", peerID, addr, err)
		}
	} else {
		if err := sock.Listen(addr); err != nil {
			sock.Close()
			return nil, fmt.Errorf("transport: listen for %s at %s: %w", peerID, addr, err)
		}
	}

	peer := &SocketPeer{id: peerID, sock: sock}
	target.AddPeer(peerID, peer)

	go readLoop(sock, peerID, target, log)

	return peer, nil
}

func readLoop(sock Socket, peerID string, target *room.Room, log logging.Logger) {
	for {
		data, err := sock.Recv()
		if err != nil {
			log.Warn("transport read failed, link dropping", logging.String("peer", peerID), logging.Error(err))
			return
		}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			msg, err := room.DecodeWireLine(peerID, line)
			if err != nil {
				log.Warn("dropping malformed wire line", logging.String("peer", peerID), logging.Error(err))
				continue
			}
			target.Send(msg)
		}
	}
}
