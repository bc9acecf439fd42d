// Package endpoint defines the minimum datagram-socket capability the
// pktudp core consumes, so that the reliability state machine in pktconn
// and listener never depends on net.UDPConn directly.
package endpoint

import (
	"net"
	"time"
)

// Endpoint is the datagram-socket contract consumed by the core. It assumes
// datagrams are delivered whole-frame or lost-whole-frame, with no partial
// reads and no reordering detection beyond what the caller performs.
type Endpoint interface {
	// Connect pins the endpoint's default destination. Subsequent Send/Recv
	// target this peer only.
	Connect(addr *net.UDPAddr) error

	// Send writes buf to the connected peer.
	Send(buf []byte) error

	// Recv reads one frame from the connected peer into buf, returning the
	// number of bytes read.
	Recv(buf []byte) (int, error)

	// RecvFrom performs an unconnected receive, returning the sender's
	// address alongside the number of bytes read.
	RecvFrom(buf []byte) (int, *net.UDPAddr, error)

	// SendTo performs an unconnected send to addr. Used only during the
	// handshake, before the endpoint has pinned a peer via Connect.
	SendTo(buf []byte, addr *net.UDPAddr) error

	// SetReadTimeout bounds subsequent Recv/RecvFrom calls; a call exceeding
	// d fails with an error satisfying IsTimeout.
	SetReadTimeout(d time.Duration) error

	// LocalAddr returns the endpoint's bound local address.
	LocalAddr() *net.UDPAddr

	// RemoteAddr returns the endpoint's connected peer address, or nil if
	// the endpoint has not yet been Connect-ed.
	RemoteAddr() *net.UDPAddr

	// Close releases the underlying socket, aborting any pending receive.
	Close() error
}

// IsTimeout reports whether err represents a read-timeout signal from an
// Endpoint, as opposed to any other I/O failure.
func IsTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
