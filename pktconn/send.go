package pktconn

import (
	"fmt"
	"time"

	"github.com/arkforge/pktudp/endpoint"
	"github.com/arkforge/pktudp/internal/obslog"
	"github.com/arkforge/pktudp/wire"
)

// Send transmits pkt as one whole packet and blocks until the peer
// acknowledges it, retransmitting any frame the peer NACKs.
func (c *Conn) Send(pkt []byte) error {
	if len(pkt) == 0 || len(pkt) > wire.MaxPacketSize {
		return fmt.Errorf("pktconn: packet size %d out of range [1, %d]", len(pkt), wire.MaxPacketSize)
	}

	start := time.Now()
	c.nextPktID++
	pktID := c.nextPktID
	pktSz := uint32(len(pkt))
	frameCount := wire.FrameCount(pktSz)

	for k := uint32(0); k < frameCount; k++ {
		frameNo := uint16(k)
		length := wire.FrameLength(pktSz, frameNo)
		offset := int(k) * wire.DataSize
		if err := c.ep.Send(wire.EncodeData(pktID, pktSz, frameNo, pkt[offset:offset+length])); err != nil {
			return fmt.Errorf("pktconn: send frame %d: %w", frameNo, err)
		}
	}

	retransmitted := 0
	timeouts := 0
	buf := make([]byte, wire.FrameSize)

	for {
		n, err := c.ep.Recv(buf)
		if err != nil {
			if endpoint.IsTimeout(err) {
				// A read timeout does not proactively resend; the sender
				// keeps waiting for a NACK or ACK, bounded by maxLostFrames
				// rather than looping indefinitely.
				timeouts++
				if timeouts >= c.maxLostFrames {
					return fmt.Errorf("%w: no ack/nack after %d timeouts", ErrAckTimeout, timeouts)
				}
				continue
			}
			return fmt.Errorf("pktconn: send: %w", err)
		}

		f, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}
		if f.PktID != pktID {
			continue // stray frame from a prior/foreign packet, silently ignored
		}
		timeouts = 0

		if f.PktSz == 0 {
			// ACK: packet acknowledged, we may return.
			c.touch(c.remoteString())
			c.record(TransferEvent{
				PktID: pktID, PktSz: pktSz, Direction: "send",
				PeerAddr: c.remoteString(), FramesRetransmitted: retransmitted,
				Duration: time.Since(start),
			})
			c.log.Debug("packet sent", obslog.Fields{"pkt_id": pktID, "pkt_sz": pktSz, "retransmitted": retransmitted})
			return nil
		}

		// NACK for f.FrameNo: retransmit it with the same slicing rule.
		length := wire.FrameLength(pktSz, f.FrameNo)
		offset := int(f.FrameNo) * wire.DataSize
		if offset+length > len(pkt) {
			continue
		}
		if err := c.ep.Send(wire.EncodeData(pktID, pktSz, f.FrameNo, pkt[offset:offset+length])); err != nil {
			return fmt.Errorf("pktconn: retransmit frame %d: %w", f.FrameNo, err)
		}
		retransmitted++
	}
}

func (c *Conn) remoteString() string {
	if addr := c.ep.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
