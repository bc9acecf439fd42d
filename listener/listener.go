// Package listener accepts initial handshake frames on a well-known port
// and spawns a fresh bound ephemeral endpoint per peer, completing the
// handshake there so the well-known port stays free to accept the next
// peer immediately.
package listener

import (
	"fmt"

	"github.com/arkforge/pktudp/endpoint"
	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/pktconn"
	"github.com/arkforge/pktudp/wire"
)

// Listener owns one unconnected endpoint bound to the advertised listening
// address. It holds no per-connection state.
type Listener struct {
	ep  endpoint.Endpoint
	log *obslog.Logger
}

// Listen binds an endpoint to addr.
func Listen(addr string) (*Listener, error) {
	ep, err := endpoint.Bind(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pktconn.ErrBindFailed, err)
	}
	return &Listener{ep: ep, log: obslog.GetDefault()}, nil
}

// Addr returns the listener's bound local address.
func (l *Listener) Addr() string {
	return l.ep.LocalAddr().String()
}

// Close releases the listener's endpoint.
func (l *Listener) Close() error {
	return l.ep.Close()
}

// Accept blocks on one incoming hello frame, spawns a fresh endpoint bound
// to an ephemeral port and connected to the peer, replies from it so the
// peer learns the new port, and returns the resulting Conn.
func (l *Listener) Accept(opts ...pktconn.Option) (*pktconn.Conn, error) {
	buf := make([]byte, wire.FrameSize)
	n, peer, err := l.ep.RecvFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("listener: accept: %w", err)
	}
	hello := append([]byte(nil), buf[:n]...)

	conn, err := endpoint.Bind("0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pktconn.ErrBindFailed, err)
	}

	if err := conn.Connect(peer); err != nil {
		conn.Close()
		return nil, fmt.Errorf("listener: pin peer %s: %w", peer, err)
	}

	if err := conn.Send(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("listener: hello-ack to %s: %w", peer, err)
	}

	c := pktconn.New(conn, opts...)
	l.log.Info("accepted connection", obslog.Fields{"peer": peer.String(), "local": conn.LocalAddr().String()})
	return c, nil
}
