package ipc

import (
	"encoding/binary"
	"math"
)

// Length field sizes supported by the frame codec. Both peers must use
// the same size; the prefix carries no self-describing marker.
const (
	// LengthField32 is a 4-byte little-endian length prefix.
	LengthField32 = 4
	// LengthField64 is an 8-byte little-endian length prefix.
	LengthField64 = 8
)

// encodeFrame appends a length-prefixed frame carrying payload to dst
// and returns the extended slice. Payloads longer than limit are
// rejected before any bytes are produced.
func encodeFrame(dst, payload []byte, width, limit int) ([]byte, error) {
	if len(payload) > limit {
		return dst, ErrFrameTooLarge
	}

	switch width {
	case LengthField32:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	default:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(len(payload)))
	}

	return append(dst, payload...), nil
}

// frameDecoder assembles length-prefixed frames from arbitrarily
// chunked input. State persists between calls, so a frame split across
// any number of reads is reassembled transparently, and an interrupted
// caller can resume feeding bytes later without losing position.
type frameDecoder struct {
	width int // length field size, LengthField32 or LengthField64
	limit int // maximum accepted payload length

	header  [LengthField64]byte
	hlen    int    // header bytes accumulated so far
	payload []byte // nil until the header is complete
	plen    int    // payload bytes accumulated so far
}

func newFrameDecoder(width, limit int) *frameDecoder {
	return &frameDecoder{width: width, limit: limit}
}

// next consumes bytes from p and reports how many were used. When the
// bytes complete a frame, the payload is returned and the decoder
// resets for the next frame; otherwise frame is nil and more input is
// required. A declared length above the limit fails with
// ErrFrameTooLarge before the payload buffer is allocated.
func (d *frameDecoder) next(p []byte) (n int, frame []byte, err error) {
	for d.hlen < d.width {
		if n == len(p) {
			return n, nil, nil
		}
		d.header[d.hlen] = p[n]
		d.hlen++
		n++
	}

	if d.payload == nil {
		size := d.declaredLength()
		if size > uint64(d.limit) {
			return n, nil, ErrFrameTooLarge
		}
		d.payload = make([]byte, size)
		d.plen = 0
	}

	c := copy(d.payload[d.plen:], p[n:])
	d.plen += c
	n += c

	if d.plen < len(d.payload) {
		return n, nil, nil
	}

	frame = d.payload
	d.hlen = 0
	d.payload = nil
	d.plen = 0
	return n, frame, nil
}

// pending reports whether the decoder holds a partially assembled
// frame.
func (d *frameDecoder) pending() bool {
	return d.hlen > 0 || d.payload != nil
}

// need returns the number of bytes still required to complete the
// current frame, or the header size if no frame is in progress.
func (d *frameDecoder) need() int {
	if d.payload != nil {
		return len(d.payload) - d.plen
	}
	return d.width - d.hlen
}

func (d *frameDecoder) declaredLength() uint64 {
	if d.width == LengthField32 {
		return uint64(binary.LittleEndian.Uint32(d.header[:LengthField32]))
	}
	size := binary.LittleEndian.Uint64(d.header[:])
	if size > math.MaxInt64 {
		// Clamp so the limit comparison cannot be fooled by values
		// that overflow int.
		return math.MaxInt64
	}
	return size
}
