//go:build zmq

package transport

import (
	"time"

	zmq "github.com/pebbe/zmq4"
)

// zmqSocket adapts a zmq.Socket to Socket, using ZMQ_PAIR for the same
// symmetric link role mangos' pair protocol plays by default.
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return err
}

func (s *zmqSocket) Recv() ([]byte, error) {
	return s.sock.RecvBytes(0)
}

func (s *zmqSocket) Close() error { return s.sock.Close() }

func (s *zmqSocket) Listen(addr string) error { return s.sock.Bind(addr) }
func (s *zmqSocket) Dial(addr string) error   { return s.sock.Connect(addr) }

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(d)
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

// ZMQFactory builds ZeroMQ sockets. Built only with `-tags zmq`, which
// also makes newSocketFactory in cmd/songlist-replica and
// cmd/songlist-master return it in place of the mangos factory.
type ZMQFactory struct {
	ctx *zmq.Context
}

func NewZMQFactory() (*ZMQFactory, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}
	return &ZMQFactory{ctx: ctx}, nil
}

func (f *ZMQFactory) NewPairSocket() (Socket, error) {
	sock, err := f.ctx.NewSocket(zmq.PAIR)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}
