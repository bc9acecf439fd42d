// Package reassembly holds the receiver's per-packet scratch state: the
// payload buffer sized to the packet and the set of still-missing frame
// indices.
package reassembly

import "github.com/arkforge/pktudp/wire"

// Buffer is the reassembly state for one in-progress packet receive. It
// exists for the duration of a single Conn.Recv call and is discarded once
// the packet is complete.
type Buffer struct {
	PktID   uint64
	PktSz   uint32
	buf     []byte
	missing map[uint16]struct{}
}

// New allocates a Buffer sized for pktSz and inserts the first observed
// frame (frameNo, payload).
func New(pktID uint64, pktSz uint32, frameNo uint16, payload []byte) *Buffer {
	count := wire.FrameCount(pktSz)
	b := &Buffer{
		PktID:   pktID,
		PktSz:   pktSz,
		buf:     make([]byte, pktSz),
		missing: make(map[uint16]struct{}, count),
	}
	for k := uint32(0); k < count; k++ {
		b.missing[uint16(k)] = struct{}{}
	}
	b.Insert(frameNo, payload)
	return b
}

// Insert writes payload into the buffer at frameNo's slice if frameNo is
// still missing, then removes it from the missing set. It is a no-op if
// frameNo was already filled — insertion is idempotent, so duplicate
// frames on the wire cannot corrupt the buffer.
func (b *Buffer) Insert(frameNo uint16, payload []byte) {
	if _, ok := b.missing[frameNo]; !ok {
		return
	}

	length := wire.FrameLength(b.PktSz, frameNo)
	offset := int(frameNo) * wire.DataSize
	copy(b.buf[offset:offset+length], payload[:length])
	delete(b.missing, frameNo)
}

// Missing reports whether any frame index is still unfilled.
func (b *Buffer) Missing() bool {
	return len(b.missing) > 0
}

// MissingCount returns the number of still-missing frame indices.
func (b *Buffer) MissingCount() int {
	return len(b.missing)
}

// MissingIndices returns the set of still-missing frame indices, in no
// particular order.
func (b *Buffer) MissingIndices() []uint16 {
	out := make([]uint16, 0, len(b.missing))
	for k := range b.missing {
		out = append(out, k)
	}
	return out
}

// Bytes returns the assembled packet. Only valid once Missing() is false.
func (b *Buffer) Bytes() []byte {
	return b.buf
}
