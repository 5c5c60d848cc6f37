package conn

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on the given network/address and returns a net.Listener
// that applies opts to accepted TCP connections.
func ListenTCP(ctx context.Context, network, addr string, opts Options) (net.Listener, error) {
	// Keep-alive is left to Apply so that a disabled config stays disabled.
	lc := net.ListenConfig{KeepAlive: -1}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	return &TuningListener{Listener: ln, Options: opts}, nil
}

// TuningListener wraps a net.Listener and applies Options to any accepted
// *net.TCPConn.
type TuningListener struct {
	net.Listener
	Options
}

// Accept accepts the next connection and tunes it.
func (l *TuningListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	// Tuning is best effort; a socket that refuses an option still works.
	_ = l.Options.Apply(c)

	return c, nil
}
