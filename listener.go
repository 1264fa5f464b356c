package ipc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Handler processes one accepted connection. Serve closes the
// connection when the handler returns.
type Handler func(ctx context.Context, conn *Conn) error

// Listener is a bound endpoint producing accepted Conns. It owns its
// Acceptor exclusively; each accepted Conn is independent of the
// Listener that produced it.
type Listener struct {
	acceptor Acceptor
	addr     Address
	opts     options
	logger   Logger
	closed   atomic.Bool
}

// Listen binds the channel named name in the local scope. It fails
// with ErrAddressInUse while another live binding occupies the
// address; closing the listener removes the socket file so the name
// can be rebound.
func Listen(name string, opt ...Option) (*Listener, error) {
	addr, err := Resolve(name, ScopeLocal)
	if err != nil {
		return nil, err
	}
	return ListenAddress(addr, opt...)
}

// ListenAddress binds an already-resolved Address.
func ListenAddress(addr Address, opt ...Option) (*Listener, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}

	acceptor, err := bindSocket(addr)
	if err != nil {
		return nil, err
	}

	l := newListener(acceptor, addr, opts)
	l.logger.Debug("listener bound", "addr", addr)
	return l, nil
}

// NewListener wraps a custom Acceptor in a Listener. This is the
// extension seam for non-socket byte streams; Listen uses it
// internally with the platform socket acceptor.
func NewListener(acceptor Acceptor, opt ...Option) (*Listener, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return newListener(acceptor, Address{}, opts), nil
}

func newListener(acceptor Acceptor, addr Address, opts options) *Listener {
	return &Listener{
		acceptor: acceptor,
		addr:     addr,
		opts:     opts,
		logger:   opts.logger,
	}
}

// Accept waits for the next incoming connection and returns it in the
// open state. It may be called any number of times; each call yields
// an independent Conn. After Close it fails with ErrListenerClosed.
func (l *Listener) Accept() (*Conn, error) {
	return l.accept(context.Background())
}

// AcceptContext is Accept with cancellation. A cancelled accept
// leaves the listener usable for further accepts.
func (l *Listener) AcceptContext(ctx context.Context) (*Conn, error) {
	return l.accept(ctx)
}

func (l *Listener) accept(ctx context.Context) (*Conn, error) {
	if l.closed.Load() {
		return nil, ErrListenerClosed
	}

	stop := interrupt(ctx, l.acceptor)
	tr, err := l.acceptor.Accept()
	interrupted := stop()

	if err != nil {
		if l.closed.Load() || errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		if interrupted && isTimeout(err) {
			return nil, ctx.Err()
		}
		return nil, err
	}

	conn := newConn(tr, l.opts)
	l.logger.Debug("accepted connection", "addr", l.addr)
	return conn, nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, running handler for each on its own goroutine. It returns
// after all handlers finish: the first handler error, ctx.Err() on
// cancellation, or nil when the listener was closed.
func (l *Listener) Serve(ctx context.Context, handler Handler) error {
	l.logger.Info("listener serving", "addr", l.addr)

	group, ctx := errgroup.WithContext(ctx)
	for {
		conn, err := l.AcceptContext(ctx)
		if err != nil {
			werr := group.Wait()
			switch {
			case werr != nil:
				return werr
			case ctx.Err() != nil:
				l.logger.Info("listener stopped", "addr", l.addr)
				return ctx.Err()
			case errors.Is(err, ErrListenerClosed):
				l.logger.Info("listener stopped", "addr", l.addr)
				return nil
			default:
				l.logger.Error("accept error", "addr", l.addr, "error", err)
				return err
			}
		}

		group.Go(func() error {
			defer conn.Close()
			return handler(ctx, conn)
		})
	}
}

// Close unbinds the address, removing the socket file, and wakes any
// in-flight Accept, which then fails with ErrListenerClosed. Safe to
// call multiple times.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil // already closed
	}
	l.logger.Debug("listener closed", "addr", l.addr)
	return l.acceptor.Close()
}

// IsClosed returns true if the listener has been closed.
func (l *Listener) IsClosed() bool {
	return l.closed.Load()
}

// Addr returns the bound address. It is the zero Address for
// listeners constructed over a custom Acceptor.
func (l *Listener) Addr() Address {
	return l.addr
}
