package pktconn

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/arkforge/pktudp/wire"
)

// scriptedEndpoint replays a fixed sequence of inbound frames to Recv (a nil
// entry means "time out"), and records every outbound frame, so tests can
// drive precise loss/NACK scenarios without real sockets — in the style of
// isolated, table-driven unit tests.
type scriptedEndpoint struct {
	toRecv []([]byte)
	pos    int
	sent   [][]byte
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func (e *scriptedEndpoint) Connect(*net.UDPAddr) error { return nil }

func (e *scriptedEndpoint) Send(buf []byte) error {
	e.sent = append(e.sent, append([]byte(nil), buf...))
	return nil
}

func (e *scriptedEndpoint) SendTo(buf []byte, _ *net.UDPAddr) error { return e.Send(buf) }

func (e *scriptedEndpoint) Recv(buf []byte) (int, error) {
	if e.pos >= len(e.toRecv) {
		return 0, timeoutError{}
	}
	next := e.toRecv[e.pos]
	e.pos++
	if next == nil {
		return 0, timeoutError{}
	}
	return copy(buf, next), nil
}

func (e *scriptedEndpoint) RecvFrom(buf []byte) (int, *net.UDPAddr, error) {
	n, err := e.Recv(buf)
	return n, nil, err
}

func (e *scriptedEndpoint) SetReadTimeout(time.Duration) error { return nil }
func (e *scriptedEndpoint) LocalAddr() *net.UDPAddr            { return &net.UDPAddr{Port: 1} }
func (e *scriptedEndpoint) RemoteAddr() *net.UDPAddr           { return &net.UDPAddr{Port: 2} }
func (e *scriptedEndpoint) Close() error                       { return nil }

func TestRecvSingleFrameLossTriggersNack(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x01}, 1536)

	f0 := wire.EncodeData(1, uint32(len(pkt)), 0, pkt[0:512])
	f1 := wire.EncodeData(1, uint32(len(pkt)), 1, pkt[512:1024])
	f2 := wire.EncodeData(1, uint32(len(pkt)), 2, pkt[1024:1536])

	ep.toRecv = [][]byte{f0, nil /* frame 1 lost */, f1, f2}

	c := New(ep, WithMaxLostFrames(10))
	got, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatal("reassembled packet mismatch after single frame loss")
	}

	// One NACK per still-missing frame (1 and 2) plus the final ACK.
	if len(ep.sent) != 3 {
		t.Fatalf("expected 2 NACKs + final ack = 3 sends, got %d", len(ep.sent))
	}
}

func TestRecvForeignFrameDiscarded(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x02}, 1024)

	foreign := wire.EncodeData(99, 999, 0, bytes.Repeat([]byte{0xFF}, 512))
	f0 := wire.EncodeData(7, uint32(len(pkt)), 0, pkt[0:512])
	f1 := wire.EncodeData(7, uint32(len(pkt)), 1, pkt[512:1024])

	ep.toRecv = [][]byte{f0, foreign, f1}

	c := New(ep, WithMaxLostFrames(10))
	got, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatal("foreign frame should not corrupt assembly")
	}
}

func TestRecvExhaustsRetryBudget(t *testing.T) {
	ep := &scriptedEndpoint{}
	f0 := wire.EncodeData(1, 1536, 0, bytes.Repeat([]byte{0x00}, 512))
	ep.toRecv = [][]byte{f0, nil, nil, nil, nil, nil, nil, nil, nil, nil}

	c := New(ep, WithMaxLostFrames(10))
	if _, err := c.Recv(); err == nil {
		t.Fatal("expected too-many-frames-lost error")
	}
}

func TestRecvDuplicateFrameIgnored(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x03}, 1024)

	f0 := wire.EncodeData(1, uint32(len(pkt)), 0, pkt[0:512])
	dup := wire.EncodeData(1, uint32(len(pkt)), 0, bytes.Repeat([]byte{0xEE}, 512))
	f1 := wire.EncodeData(1, uint32(len(pkt)), 1, pkt[512:1024])

	ep.toRecv = [][]byte{f0, dup, f1}

	c := New(ep, WithMaxLostFrames(10))
	got, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatal("duplicate frame corrupted assembly")
	}
}

func TestSendRetransmitsOnNack(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x09}, 1024)

	nack := wire.NackFrame(1, uint32(len(pkt)), 0)
	ack := wire.AckFrame(1)
	ep.toRecv = [][]byte{nack, ack}

	c := New(ep, WithMaxLostFrames(10))
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// 2 initial frames + 1 retransmit = 3 sends.
	if len(ep.sent) != 3 {
		t.Fatalf("expected 3 sends (2 data + 1 retransmit), got %d", len(ep.sent))
	}
}

func TestSendIgnoresMismatchedPktID(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x0A}, 512)

	stray := wire.AckFrame(99)
	ack := wire.AckFrame(1)
	ep.toRecv = [][]byte{stray, ack}

	c := New(ep, WithMaxLostFrames(10))
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendAckTimeoutBounded(t *testing.T) {
	ep := &scriptedEndpoint{}
	pkt := bytes.Repeat([]byte{0x0B}, 512)
	ep.toRecv = nil // every Recv times out

	c := New(ep, WithMaxLostFrames(3))
	if err := c.Send(pkt); err == nil {
		t.Fatal("expected bounded ack-timeout error")
	}
}
