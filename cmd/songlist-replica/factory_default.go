//go:build !zmq

package main

import "github.com/cluso-labs/songlist3pc/pkg/transport"

// newSocketFactory picks the wire binding this binary links against.
// Mangos (pure Go, no CGO) is the default; build with -tags zmq to link
// libzmq instead.
func newSocketFactory() (transport.SocketFactory, error) {
	return transport.NewMangosFactory(), nil
}
