// Package pktconn implements the sender and receiver halves of the
// reliability protocol: Connect/Send/Recv over one dedicated datagram
// endpoint, retransmitting on NACK and acknowledging once a packet is
// fully reassembled.
package pktconn

import (
	"fmt"
	"net"
	"time"

	"github.com/arkforge/pktudp/endpoint"
	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/wire"
)

const (
	defaultRetransmitInterval = 500 * time.Microsecond
	defaultMaxLostFrames      = 10
	handshakeTimeout          = 5 * time.Second
)

// TransferEvent describes one completed packet transfer, reported to an
// optional Recorder after Send or Recv returns successfully.
type TransferEvent struct {
	PktID               uint64
	PktSz               uint32
	Direction           string // "send" or "recv"
	PeerAddr            string
	FramesRetransmitted int
	Duration            time.Duration
}

// Recorder receives completed-transfer events. Implemented by
// internal/audit so the core has no mandatory dependency on it.
type Recorder interface {
	RecordTransfer(TransferEvent)
}

// ActivityNotifier is told about connection activity. Implemented by
// internal/registry so the core has no mandatory dependency on it.
type ActivityNotifier interface {
	Touch(peerAddr string)
}

// Option configures a Conn.
type Option func(*Conn)

// WithRetransmitInterval overrides the default 500µs NACK/retransmit pacing.
func WithRetransmitInterval(d time.Duration) Option {
	return func(c *Conn) { c.retransmitInterval = d }
}

// WithMaxLostFrames overrides the default retry budget of 10.
func WithMaxLostFrames(n int) Option {
	return func(c *Conn) { c.maxLostFrames = n }
}

// WithLogger attaches a structured logger; the default is obslog.GetDefault().
func WithLogger(l *obslog.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// WithRecorder attaches an optional transfer-audit hook.
func WithRecorder(r Recorder) Option {
	return func(c *Conn) { c.recorder = r }
}

// WithActivityNotifier attaches an optional connection-registry hook.
func WithActivityNotifier(n ActivityNotifier) Option {
	return func(c *Conn) { c.notifier = n }
}

// Conn is one pinned 5-tuple carrying at most one in-flight packet at a
// time. It owns exactly one Endpoint and, transiently, one reassembly
// buffer.
type Conn struct {
	ep                 endpoint.Endpoint
	nextPktID          uint64
	retransmitInterval time.Duration
	maxLostFrames      int
	log                *obslog.Logger
	recorder           Recorder
	notifier           ActivityNotifier
}

func newConn(ep endpoint.Endpoint, opts ...Option) *Conn {
	c := &Conn{
		ep:                 ep,
		retransmitInterval: defaultRetransmitInterval,
		maxLostFrames:      defaultMaxLostFrames,
		log:                obslog.GetDefault(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New wraps an already-handshaken Endpoint (as produced by a Listener
// accepting a peer) into a Conn with next_pkt_id = 0, setting the read
// timeout to the retransmit interval.
func New(ep endpoint.Endpoint, opts ...Option) *Conn {
	c := newConn(ep, opts...)
	_ = ep.SetReadTimeout(c.retransmitInterval)
	return c
}

// Connect performs the client-side handshake: bind an
// ephemeral endpoint, send a single zeroed hello frame to the listener's
// well-known address, then pin the connection to whichever address the
// reply actually arrives from (the listener's fresh ephemeral port).
func Connect(addr string, opts ...Option) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %q: %v", ErrHandshakeFailed, addr, err)
	}

	ep, err := endpoint.Bind("0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	if err := ep.SendTo(wire.HelloFrame(), raddr); err != nil {
		ep.Close()
		return nil, fmt.Errorf("%w: send hello: %v", ErrHandshakeFailed, err)
	}

	if err := ep.SetReadTimeout(handshakeTimeout); err != nil {
		ep.Close()
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	buf := make([]byte, wire.FrameSize)
	_, peer, err := ep.RecvFrom(buf)
	if err != nil {
		ep.Close()
		return nil, fmt.Errorf("%w: awaiting hello-ack: %v", ErrHandshakeFailed, err)
	}

	if err := ep.Connect(peer); err != nil {
		ep.Close()
		return nil, fmt.Errorf("%w: pin peer %s: %v", ErrHandshakeFailed, peer, err)
	}

	c := newConn(ep, opts...)
	if err := ep.SetReadTimeout(c.retransmitInterval); err != nil {
		ep.Close()
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	c.log.Info("handshake complete", obslog.Fields{"peer": peer.String()})
	return c, nil
}

// Close releases the connection's endpoint, aborting any pending receive.
func (c *Conn) Close() error {
	return c.ep.Close()
}

// LocalAddr returns the connection's local endpoint address.
func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.ep.LocalAddr()
}

func (c *Conn) touch(peer string) {
	if c.notifier != nil {
		c.notifier.Touch(peer)
	}
}

func (c *Conn) record(ev TransferEvent) {
	if c.recorder != nil {
		c.recorder.RecordTransfer(ev)
	}
}
