package ipc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeAll feeds p to the decoder in chunks of at most chunk bytes
// and collects every completed frame.
func decodeAll(t *testing.T, d *frameDecoder, p []byte, chunk int) [][]byte {
	t.Helper()

	var frames [][]byte
	for len(p) > 0 {
		in := p
		if len(in) > chunk {
			in = in[:chunk]
		}
		n, frame, err := d.next(in)
		require.NoError(t, err)
		if frame != nil {
			frames = append(frames, frame)
		}
		p = p[n:]
	}
	return frames
}

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x02, 0x03},
		{},
		[]byte("hello"),
		make([]byte, 4096),
	}

	for _, width := range []int{LengthField32, LengthField64} {
		var wire []byte
		for _, p := range payloads {
			var err error
			wire, err = encodeFrame(wire, p, width, defaultMaxFrameSize)
			require.NoError(t, err)
		}

		// Whole-buffer and byte-at-a-time delivery must both yield the
		// same frames in the same order.
		for _, chunk := range []int{len(wire), 1, 7} {
			d := newFrameDecoder(width, defaultMaxFrameSize)
			frames := decodeAll(t, d, wire, chunk)
			require.Len(t, frames, len(payloads))
			for i, p := range payloads {
				assert.Equal(t, []byte(p), frames[i])
			}
			assert.False(t, d.pending())
		}
	}
}

func TestFrameLengthPrefixLittleEndian(t *testing.T) {
	wire, err := encodeFrame(nil, []byte{0xAA, 0xBB}, LengthField32, 16)
	require.NoError(t, err)
	require.Len(t, wire, 6)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(wire[:4]))
	assert.Equal(t, []byte{0xAA, 0xBB}, wire[4:])
}

func TestEncodeFrameTooLarge(t *testing.T) {
	payload := make([]byte, 17)
	_, err := encodeFrame(nil, payload, LengthField64, 16)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	// Exactly at the limit is fine.
	_, err = encodeFrame(nil, payload[:16], LengthField64, 16)
	assert.NoError(t, err)
}

func TestDecodeFrameTooLarge(t *testing.T) {
	// A header declaring one byte over the limit must fail as soon as
	// the header is complete, with no payload bytes delivered yet.
	header := binary.LittleEndian.AppendUint64(nil, 17)

	d := newFrameDecoder(LengthField64, 16)
	n, frame, err := d.next(header)
	assert.Equal(t, len(header), n)
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeHugeLengthDoesNotAllocate(t *testing.T) {
	// Length fields near the uint64 maximum must be rejected from the
	// header alone rather than attempting the allocation.
	header := binary.LittleEndian.AppendUint64(nil, ^uint64(0))

	d := newFrameDecoder(LengthField64, defaultMaxFrameSize)
	_, _, err := d.next(header)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoderPendingAndNeed(t *testing.T) {
	wire, err := encodeFrame(nil, []byte("abcd"), LengthField64, 64)
	require.NoError(t, err)

	d := newFrameDecoder(LengthField64, 64)
	assert.False(t, d.pending())
	assert.Equal(t, LengthField64, d.need())

	// Feed half the header.
	n, frame, err := d.next(wire[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Nil(t, frame)
	assert.True(t, d.pending())
	assert.Equal(t, LengthField64-3, d.need())

	// Complete the header and two payload bytes.
	n, frame, err = d.next(wire[3:10])
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Nil(t, frame)
	assert.Equal(t, 2, d.need())

	// Finish the frame.
	_, frame, err = d.next(wire[10:])
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), frame)
	assert.False(t, d.pending())
}

func TestDecoderConsumesOnlyOneFrame(t *testing.T) {
	wire, err := encodeFrame(nil, []byte("one"), LengthField32, 64)
	require.NoError(t, err)
	wire, err = encodeFrame(wire, []byte("two"), LengthField32, 64)
	require.NoError(t, err)

	d := newFrameDecoder(LengthField32, 64)
	n, frame, err := d.next(wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), frame)

	// Bytes past the first frame stay unconsumed for the caller.
	_, frame, err = d.next(wire[n:])
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), frame)
}
