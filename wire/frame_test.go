package wire

import "testing"

func TestFrameCount(t *testing.T) {
	cases := []struct {
		size uint32
		want uint32
	}{
		{1, 1},
		{512, 1},
		{513, 2},
		{1024, 2},
		{1536, 3},
		{MaxPacketSize, MaxFrameNo},
	}
	for _, c := range cases {
		if got := FrameCount(c.size); got != c.want {
			t.Errorf("FrameCount(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestFrameLength(t *testing.T) {
	cases := []struct {
		pktSz   uint32
		k       uint16
		wantLen int
	}{
		{513, 0, 512},
		{513, 1, 1},
		{1024, 0, 512},
		{1024, 1, 512},
		{1, 0, 1},
	}
	for _, c := range cases {
		if got := FrameLength(c.pktSz, c.k); got != c.wantLen {
			t.Errorf("FrameLength(%d, %d) = %d, want %d", c.pktSz, c.k, got, c.wantLen)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := make([]byte, DataSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	var f Frame
	f.PktID = 7
	f.PktSz = 1536
	f.FrameNo = 2
	copy(f.Payload[:], payload)

	buf := Encode(f)
	if len(buf) != FrameSize {
		t.Fatalf("Encode produced %d bytes, want %d", len(buf), FrameSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.PktID != f.PktID || got.PktSz != f.PktSz || got.FrameNo != f.FrameNo {
		t.Fatalf("Decode header mismatch: got %+v", got)
	}
	if got.Payload != f.Payload {
		t.Fatalf("Decode payload mismatch")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, err := Decode(make([]byte, FrameSize-1)); err == nil {
		t.Fatal("expected error decoding short buffer")
	}
}

func TestIsHelloAndAck(t *testing.T) {
	hello, err := Decode(HelloFrame())
	if err != nil {
		t.Fatal(err)
	}
	if !hello.IsHello() {
		t.Error("HelloFrame should report IsHello")
	}

	ack, err := Decode(AckFrame(3))
	if err != nil {
		t.Fatal(err)
	}
	if !ack.IsAck() {
		t.Error("AckFrame should report IsAck")
	}
	if ack.IsHello() {
		t.Error("AckFrame should not report IsHello")
	}
}

func TestEncodeDataShortFinalFrame(t *testing.T) {
	buf := EncodeData(1, 513, 1, []byte{0xAB})
	f, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if f.Payload[0] != 0xAB {
		t.Fatalf("expected first payload byte 0xAB, got 0x%02x", f.Payload[0])
	}
}
