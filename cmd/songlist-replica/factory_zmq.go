//go:build zmq

package main

import "github.com/cluso-labs/songlist3pc/pkg/transport"

func newSocketFactory() (transport.SocketFactory, error) {
	return transport.NewZMQFactory()
}
