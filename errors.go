package ipc

import "errors"

// Errors returned by address resolution.
var (
	// ErrInvalidName is returned when a channel name is empty or
	// contains path separator characters.
	ErrInvalidName = errors.New("ipc: invalid channel name")
	// ErrResolutionFailed is returned when no runtime directory can be
	// determined for the requested scope.
	ErrResolutionFailed = errors.New("ipc: cannot resolve runtime directory")
)

// Errors returned by Listen and Accept.
var (
	// ErrAddressInUse is returned when another live binding already
	// occupies the address.
	ErrAddressInUse = errors.New("ipc: address already in use")
	// ErrPermissionDenied is returned when the address cannot be bound
	// or dialed due to filesystem permissions.
	ErrPermissionDenied = errors.New("ipc: permission denied")
	// ErrInvalidAddress is returned when the address does not name a
	// bindable endpoint (missing directory, path too long, and so on).
	ErrInvalidAddress = errors.New("ipc: invalid address")
	// ErrListenerClosed is returned by Accept after the listener has
	// been closed, including accepts that were in flight when Close
	// was called.
	ErrListenerClosed = errors.New("ipc: listener closed")
)

// Errors returned by connection operations.
var (
	// ErrConnectionClosed is returned when operating on a closed
	// connection, whether it was closed locally, by the peer, or by a
	// fatal transport error.
	ErrConnectionClosed = errors.New("ipc: connection closed")
	// ErrFrameTooLarge is returned when a frame's declared payload
	// length exceeds the configured maximum. On receive it is detected
	// from the length prefix alone, before any payload is buffered.
	ErrFrameTooLarge = errors.New("ipc: frame too large")
)

// SerializeError reports a serializer failure while encoding an
// outgoing value. The connection remains usable; nothing was written.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return "ipc: serialize: " + e.Err.Error()
}

func (e *SerializeError) Unwrap() error {
	return e.Err
}

// DeserializeError reports a serializer failure while decoding a
// received payload. The frame was consumed, so the connection remains
// usable for subsequent receives.
type DeserializeError struct {
	Err error
}

func (e *DeserializeError) Error() string {
	return "ipc: deserialize: " + e.Err.Error()
}

func (e *DeserializeError) Unwrap() error {
	return e.Err
}
