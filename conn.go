// Package ipc provides point-to-point message channels over
// platform-native interprocess transports. It turns an ordered byte
// stream into a sequence of length-prefixed frames, serializes typed
// values with a pluggable codec, and offers every blocking operation
// in a context-cancellable variant backed by the same protocol core.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Message kinds carried in the first payload byte. A closing notice
// lets the peer distinguish an orderly shutdown from a dropped
// transport.
const (
	kindData  = 0x01
	kindClose = 0x02
)

// closeNoticeTimeout bounds the best-effort closing notice written by
// Close so a stalled peer cannot delay teardown.
const closeNoticeTimeout = 100 * time.Millisecond

// Conn is one live, ordered, duplex message channel between two peers.
// It owns its Transport exclusively. Sends and receives may run
// concurrently with each other, but at most one of each at a time.
type Conn struct {
	tr     Transport
	opts   options
	logger Logger

	sendMu sync.Mutex

	recvMu sync.Mutex
	dec    *frameDecoder
	rbuf   []byte
	rpos   int
	rlen   int

	closed atomic.Bool
}

// Dial connects to the channel named name in the local scope, bounded
// by the configured dial timeout.
func Dial(name string, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.dialTimeout)
	defer cancel()

	addr, err := Resolve(name, ScopeLocal)
	if err != nil {
		return nil, err
	}
	return dialAddress(ctx, addr, opts)
}

// DialContext connects to the channel named name in the local scope.
// The context bounds connection establishment only; it does not govern
// the returned Conn.
func DialContext(ctx context.Context, name string, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}

	addr, err := Resolve(name, ScopeLocal)
	if err != nil {
		return nil, err
	}
	return dialAddress(ctx, addr, opts)
}

// DialAddress connects to an already-resolved Address.
func DialAddress(ctx context.Context, addr Address, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return dialAddress(ctx, addr, opts)
}

func dialAddress(ctx context.Context, addr Address, opts options) (*Conn, error) {
	tr, err := dialSocket(ctx, addr)
	if err != nil {
		return nil, err
	}
	conn := newConn(tr, opts)
	conn.logger.Debug("connection established", "addr", addr)
	return conn, nil
}

// NewConn wraps an already-connected Transport in a Conn. This is the
// extension seam for custom byte streams; Dial and Listener use it
// internally with the platform socket transport.
func NewConn(tr Transport, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return newConn(tr, opts), nil
}

func buildOptions(opt []Option) (options, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return options{}, err
	}
	return opts, nil
}

func newConn(tr Transport, opts options) *Conn {
	return &Conn{
		tr:     tr,
		opts:   opts,
		logger: opts.logger,
		dec:    newFrameDecoder(opts.lengthField, opts.maxFrameSize),
		rbuf:   make([]byte, opts.readBuffer),
	}
}

// Send serializes value, frames it and writes the frame fully to the
// transport. Messages arrive at the peer in call order. Returns
// ErrConnectionClosed once the connection is closed, a SerializeError
// if the serializer rejects the value, ErrFrameTooLarge if the encoded
// payload exceeds the frame limit, and the transport error otherwise.
func (c *Conn) Send(value any) error {
	return c.send(context.Background(), value)
}

// SendContext is Send with cancellation. A send cancelled before any
// frame byte reached the transport leaves the connection usable; one
// cancelled mid-frame closes the connection, because the peer's
// decoder would otherwise desynchronize.
func (c *Conn) SendContext(ctx context.Context, value any) error {
	return c.send(ctx, value)
}

func (c *Conn) send(ctx context.Context, value any) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	body, err := c.opts.serializer.Encode(value)
	if err != nil {
		return &SerializeError{Err: err}
	}

	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, kindData)
	payload = append(payload, body...)

	frame, err := encodeFrame(nil, payload, c.opts.lengthField, c.opts.maxFrameSize)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	stop := interrupt(ctx, c.tr)
	n, err := writeFull(c.tr, frame)
	interrupted := stop()

	if err == nil {
		return nil
	}
	if interrupted && isTimeout(err) {
		if n == 0 {
			// Nothing hit the wire; framing is still intact.
			return ctx.Err()
		}
		c.teardown()
		return ctx.Err()
	}
	c.teardown()
	return err
}

// Receive reads frames from the transport until one complete message
// is assembled, then deserializes its payload into the value pointed
// to by value. Messages are observed in the order the peer sent them.
// Returns ErrConnectionClosed on clean end-of-stream or a peer closing
// notice, io.ErrUnexpectedEOF when the stream ends mid-frame,
// ErrFrameTooLarge when the peer declares an oversized frame, a
// DeserializeError when the payload does not decode into value, and
// the transport error otherwise.
func (c *Conn) Receive(value any) error {
	return c.receive(context.Background(), value)
}

// ReceiveContext is Receive with cancellation. Cancellation preserves
// the partial-frame state, so the next receive resumes assembling the
// same frame without losing bytes.
func (c *Conn) ReceiveContext(ctx context.Context, value any) error {
	return c.receive(ctx, value)
}

func (c *Conn) receive(ctx context.Context, value any) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	stop := interrupt(ctx, c.tr)
	payload, err := c.readFrame()
	interrupted := stop()

	if err != nil {
		if interrupted && isTimeout(err) {
			return ctx.Err()
		}
		c.teardown()
		if errors.Is(err, io.EOF) {
			return ErrConnectionClosed
		}
		return err
	}

	if len(payload) == 0 {
		c.teardown()
		return &DeserializeError{Err: errors.New("empty frame")}
	}

	kind, body := payload[0], payload[1:]
	switch kind {
	case kindClose:
		c.teardown()
		return pkgerrors.Wrap(ErrConnectionClosed, "closed by peer")
	case kindData:
		if err := c.opts.serializer.Decode(body, value); err != nil {
			// The frame was fully consumed; later receives stay in sync.
			return &DeserializeError{Err: err}
		}
		return nil
	default:
		c.teardown()
		return &DeserializeError{Err: fmt.Errorf("unknown message kind 0x%02x", kind)}
	}
}

// readFrame reads from the transport until the decoder yields one
// complete frame payload. Decoder and buffer state persist across
// calls, so arbitrary chunking and interrupted calls are safe.
func (c *Conn) readFrame() ([]byte, error) {
	for {
		for c.rpos < c.rlen {
			n, frame, err := c.dec.next(c.rbuf[c.rpos:c.rlen])
			c.rpos += n
			if err != nil {
				return nil, err
			}
			if frame != nil {
				return frame, nil
			}
		}

		n, err := c.tr.Read(c.rbuf)
		c.rpos, c.rlen = 0, n
		if err != nil && n == 0 {
			if errors.Is(err, io.EOF) && c.dec.pending() {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		// Bytes delivered together with an error: consume them first;
		// a persistent error resurfaces on the next read.
	}
}

// Exchange sends req and waits for the peer's reply, decoding it into
// the value pointed to by reply.
func (c *Conn) Exchange(req, reply any) error {
	if err := c.Send(req); err != nil {
		return err
	}
	return c.Receive(reply)
}

// ExchangeContext is Exchange with cancellation.
func (c *Conn) ExchangeContext(ctx context.Context, req, reply any) error {
	if err := c.SendContext(ctx, req); err != nil {
		return err
	}
	return c.ReceiveContext(ctx, reply)
}

// Close sends a best-effort closing notice to the peer and releases
// the transport. Safe to call multiple times; subsequent Send and
// Receive calls fail with ErrConnectionClosed.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	// Skip the notice rather than wait behind an in-flight send;
	// closing the transport below unblocks it.
	if c.sendMu.TryLock() {
		if frame, err := encodeFrame(nil, []byte{kindClose}, c.opts.lengthField, c.opts.maxFrameSize); err == nil {
			_ = c.tr.SetDeadline(time.Now().Add(closeNoticeTimeout))
			_, _ = writeFull(c.tr, frame)
		}
		c.sendMu.Unlock()
	}

	c.logger.Debug("connection closed")
	return c.tr.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// teardown closes the transport after a fatal protocol or transport
// error, without the closing notice.
func (c *Conn) teardown() {
	if c.closed.Swap(true) {
		return
	}
	c.logger.Debug("connection closed")
	_ = c.tr.Close()
}

// writeFull retries short writes until the whole frame is written or
// the transport fails.
func writeFull(w io.Writer, p []byte) (int, error) {
	var n int
	for n < len(p) {
		m, err := w.Write(p[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrShortWrite
		}
	}
	return n, nil
}
