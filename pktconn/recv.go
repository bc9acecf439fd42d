package pktconn

import (
	"fmt"
	"time"

	"github.com/arkforge/pktudp/endpoint"
	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/reassembly"
	"github.com/arkforge/pktudp/wire"
)

// Recv blocks until one whole packet has been reassembled, NACKing any
// frame missing after a timeout and ACKing once complete.
func (c *Conn) Recv() ([]byte, error) {
	start := time.Now()
	buf := make([]byte, wire.FrameSize)

	n, err := c.ep.Recv(buf)
	for err != nil && endpoint.IsTimeout(err) {
		n, err = c.ep.Recv(buf)
	}
	if err != nil {
		return nil, fmt.Errorf("pktconn: recv: %w", err)
	}
	first, err := wire.Decode(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("pktconn: recv: %w", err)
	}

	length := wire.FrameLength(first.PktSz, first.FrameNo)
	rb := reassembly.New(first.PktID, first.PktSz, first.FrameNo, first.Payload[:length])

	retry := c.maxLostFrames
	nackRounds := 0

	for rb.Missing() {
		n, err := c.ep.Recv(buf)
		if err != nil {
			if endpoint.IsTimeout(err) {
				retry--
				if retry == 0 || rb.MissingCount() > c.maxLostFrames {
					return nil, fmt.Errorf("%w: pkt_id=%d", ErrTooManyFramesLost, rb.PktID)
				}
				for _, k := range rb.MissingIndices() {
					if sendErr := c.ep.Send(wire.NackFrame(rb.PktID, rb.PktSz, k)); sendErr != nil {
						return nil, fmt.Errorf("pktconn: send nack: %w", sendErr)
					}
				}
				nackRounds++
				continue
			}
			return nil, fmt.Errorf("pktconn: recv: %w", err)
		}

		f, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}
		if f.PktID != rb.PktID || f.PktSz != rb.PktSz {
			continue // foreign frame, discarded; retry budget unchanged
		}

		length := wire.FrameLength(rb.PktSz, f.FrameNo)
		rb.Insert(f.FrameNo, f.Payload[:length])
	}

	if err := c.ep.Send(wire.AckFrame(rb.PktID)); err != nil {
		return nil, fmt.Errorf("pktconn: send ack: %w", err)
	}

	c.touch(c.remoteString())
	c.record(TransferEvent{
		PktID: rb.PktID, PktSz: rb.PktSz, Direction: "recv",
		PeerAddr: c.remoteString(), FramesRetransmitted: nackRounds,
		Duration: time.Since(start),
	})
	c.log.Debug("packet received", obslog.Fields{"pkt_id": rb.PktID, "pkt_sz": rb.PktSz, "nack_rounds": nackRounds})

	return rb.Bytes(), nil
}
