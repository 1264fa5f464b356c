package ipc

import (
	"context"
	"errors"
	"net"
	"time"
)

// aLongTimeAgo is a non-zero time far in the past, used to force
// pending I/O to fail immediately when a context is cancelled.
var aLongTimeAgo = time.Unix(1, 0)

// deadliner is the slice of Transport and Acceptor the cancellation
// adapter needs.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// interrupt arranges for d's pending I/O to be aborted when ctx is
// cancelled or reaches its deadline. The returned stop function must
// be called exactly once, after the operation finishes; it reports
// whether an interruption was delivered and restores the deadline.
//
// This gives the context-taking call paths the same observable
// behavior as the blocking ones: the single shared read/write code
// runs in both cases, and only the wake-up mechanism differs.
func interrupt(ctx context.Context, d deadliner) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return false }
	}

	var interrupted bool
	stopc := make(chan struct{})
	donec := make(chan struct{})

	go func() {
		defer close(donec)
		select {
		case <-ctx.Done():
			interrupted = true
			_ = d.SetDeadline(aLongTimeAgo)
		case <-stopc:
		}
	}()

	return func() bool {
		close(stopc)
		<-donec
		if interrupted {
			_ = d.SetDeadline(time.Time{})
		}
		return interrupted
	}
}

// isTimeout reports whether err is the deadline-exceeded error a
// Transport surfaces when interrupt fires.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
