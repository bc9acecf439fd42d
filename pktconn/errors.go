package pktconn

import "errors"

// Error kinds surfaced by the core.
var (
	// ErrBindFailed means the local endpoint could not be bound.
	ErrBindFailed = errors.New("pktconn: bind error")

	// ErrHandshakeFailed means the hello/hello-ack exchange failed.
	ErrHandshakeFailed = errors.New("pktconn: handshake error")

	// ErrTooManyFramesLost means the receiver exhausted its retry budget
	// while frames remained missing.
	ErrTooManyFramesLost = errors.New("pktconn: too many frames lost")

	// ErrAckTimeout means the sender exhausted its bounded wait for a NACK
	// or ACK, rather than waiting indefinitely.
	ErrAckTimeout = errors.New("pktconn: ack timeout")
)
