package ipc

import (
	"errors"
	"time"
)

// ErrInvalidLengthField is returned when the configured length field
// size is neither LengthField32 nor LengthField64.
var ErrInvalidLengthField = errors.New("ipc: length field size must be 4 or 8")

// Default configuration values.
const (
	// defaultMaxFrameSize is the default maximum payload size accepted
	// from or written to a peer (16MB).
	defaultMaxFrameSize = 16 * 1024 * 1024
	// defaultReadBufferSize is the size of a connection's transport
	// read buffer.
	defaultReadBufferSize = 32 * 1024
	// defaultDialTimeout bounds Dial when no context is supplied.
	defaultDialTimeout = 10 * time.Second
)

// options holds the configuration shared by connections and listeners.
type options struct {
	serializer Serializer
	logger     Logger

	maxFrameSize int           // maximum payload size of a single frame
	lengthField  int           // width of the frame length prefix
	readBuffer   int           // transport read buffer size
	dialTimeout  time.Duration // connect timeout for Dial
}

// Option is a function that configures connection and listener options.
type Option func(*options)

// SerializerOption returns an Option that sets the payload serializer.
// The default is CBOR with deterministic encoding.
func SerializerOption(s Serializer) Option {
	return func(o *options) {
		o.serializer = s
	}
}

// MaxFrameSizeOption returns an Option that sets the maximum payload
// size of a single frame. Frames declaring a larger payload fail with
// ErrFrameTooLarge before the payload is buffered.
func MaxFrameSizeOption(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// LengthFieldSizeOption returns an Option that sets the width of the
// frame length prefix to LengthField32 or LengthField64. Both peers
// must use the same width; the wire carries no marker.
func LengthFieldSizeOption(width int) Option {
	return func(o *options) {
		o.lengthField = width
	}
}

// DialTimeoutOption returns an Option that bounds how long Dial waits
// for the peer to accept. DialContext ignores it; use the context.
func DialTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// checkOptions validates and sets default values for options.
func checkOptions(opts *options) error {
	if opts.serializer == nil {
		opts.serializer = NewCBORSerializer()
	}

	if opts.maxFrameSize <= 0 {
		opts.maxFrameSize = defaultMaxFrameSize
	}

	if opts.lengthField == 0 {
		opts.lengthField = LengthField64
	}
	if opts.lengthField != LengthField32 && opts.lengthField != LengthField64 {
		return ErrInvalidLengthField
	}

	if opts.readBuffer <= 0 {
		opts.readBuffer = defaultReadBufferSize
	}

	if opts.dialTimeout <= 0 {
		opts.dialTimeout = defaultDialTimeout
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}
