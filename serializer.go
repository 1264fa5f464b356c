package ipc

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// Serializer converts typed values to and from frame payloads.
// Implementations must be deterministic on encode: the same value
// always produces the same bytes. Framing never inspects the payload,
// so any format can be plugged in.
type Serializer interface {
	// Encode serializes v into an opaque payload.
	Encode(v any) ([]byte, error)
	// Decode deserializes a payload into the value pointed to by v.
	Decode(data []byte, v any) error
}

// CBORSerializer encodes values as CBOR using core deterministic
// encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. It is the default serializer.
type CBORSerializer struct {
	enc cbor.EncMode
}

// NewCBORSerializer returns a ready-to-use CBOR serializer.
func NewCBORSerializer() *CBORSerializer {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		// CoreDetEncOptions are valid by construction.
		panic(err)
	}
	return &CBORSerializer{enc: enc}
}

func (s *CBORSerializer) Encode(v any) ([]byte, error) {
	return s.enc.Marshal(v)
}

func (s *CBORSerializer) Decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// JSONSerializer encodes values as JSON. Handy when the peer is not a
// Go program or payloads need to be human-readable.
type JSONSerializer struct{}

func (JSONSerializer) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
