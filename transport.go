package ipc

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Transport is the ordered, reliable byte stream a Conn runs on. The
// connection owns its transport exclusively. SetDeadline powers
// cancellation: a deadline in the past must abort pending reads and
// writes with a timeout error, the way net.Conn behaves.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer

	// SetDeadline sets the read and write deadline for pending and
	// future I/O. The zero time clears it.
	SetDeadline(t time.Time) error
}

// Acceptor is a bound endpoint producing Transports, one per peer that
// connects. The listener owns its acceptor exclusively.
type Acceptor interface {
	// Accept waits for and returns the next incoming Transport.
	Accept() (Transport, error)
	// Close releases the binding, including any filesystem artifact it
	// created, and unblocks pending Accept calls.
	Close() error
	// SetDeadline sets the deadline for pending and future Accept
	// calls. The zero time clears it.
	SetDeadline(t time.Time) error
}

// socketAcceptor adapts a unix domain socket listener to Acceptor.
// Closing it unlinks the socket file, so the address can be rebound.
type socketAcceptor struct {
	*net.UnixListener
}

func (a socketAcceptor) Accept() (Transport, error) {
	conn, err := a.AcceptUnix()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func bindSocket(addr Address) (Acceptor, error) {
	l, err := net.ListenUnix(addr.Network(), &net.UnixAddr{Name: addr.String(), Net: addr.Network()})
	if err != nil {
		return nil, bindError(err, addr)
	}
	return socketAcceptor{l}, nil
}

func dialSocket(ctx context.Context, addr Address) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, addr.Network(), addr.String())
	if err != nil {
		return nil, pkgerrors.Wrapf(translateSysErr(err), "dial %s", addr)
	}
	return conn, nil
}

// bindError maps OS-level bind failures onto the library's error
// sentinels, keeping the original error in the chain.
func bindError(err error, addr Address) error {
	return pkgerrors.Wrapf(translateSysErr(err), "bind %s", addr)
}

func translateSysErr(err error) error {
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		return ErrAddressInUse
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.ENAMETOOLONG), errors.Is(err, syscall.EINVAL):
		return ErrInvalidAddress
	default:
		return err
	}
}
