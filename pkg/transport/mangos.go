package transport

import (
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pair"

	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// mangosSocket adapts a mangos.Socket to Socket.
type mangosSocket struct {
	sock mangos.Socket
}

func (s *mangosSocket) Send(data []byte) error { return s.sock.Send(data) }
func (s *mangosSocket) Recv() ([]byte, error)  { return s.sock.Recv() }
func (s *mangosSocket) Close() error           { return s.sock.Close() }
func (s *mangosSocket) Listen(addr string) error { return s.sock.Listen(addr) }
func (s *mangosSocket) Dial(addr string) error   { return s.sock.Dial(addr) }

func (s *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *mangosSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

// MangosFactory builds mangos/nanomsg sockets. This is the default wire
// binding; nothing in cmd/songlist-replica needs a build tag to use it.
type MangosFactory struct{}

func NewMangosFactory() *MangosFactory { return &MangosFactory{} }

func (f *MangosFactory) NewPairSocket() (Socket, error) {
	sock, err := pair.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}
