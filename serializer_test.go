package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Name  string            `json:"name"`
	Seq   uint64            `json:"seq"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

func TestCBORSerializerRoundTrip(t *testing.T) {
	s := NewCBORSerializer()

	in := testEvent{
		Name:  "started",
		Seq:   42,
		Attrs: map[string]string{"pid": "123", "host": "local"},
	}

	data, err := s.Encode(in)
	require.NoError(t, err)

	var out testEvent
	require.NoError(t, s.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestCBORSerializerBytes(t *testing.T) {
	s := NewCBORSerializer()

	data, err := s.Encode([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	var out []byte
	require.NoError(t, s.Decode(data, &out))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, out)
}

func TestCBORSerializerDeterministic(t *testing.T) {
	s := NewCBORSerializer()

	v := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	first, err := s.Encode(v)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		again, err := s.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestJSONSerializerRoundTrip(t *testing.T) {
	var s JSONSerializer

	in := testEvent{Name: "ping", Seq: 7}
	data, err := s.Encode(in)
	require.NoError(t, err)

	var out testEvent
	require.NoError(t, s.Decode(data, &out))
	assert.Equal(t, in, out)
}
