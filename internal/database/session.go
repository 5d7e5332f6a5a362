package database

import (
	"context"
	"fmt"
)

// Session is a unit of work bound to one pooled connection. Sessions are
// handed out by Provider.WithSession and must not outlive its callback or be
// shared between goroutines.
type Session interface {
	Mode() Mode
	sealed()
}

type blockingSession struct {
	uow *unitOfWork
}

func (*blockingSession) Mode() Mode { return ModeBlocking }
func (*blockingSession) sealed()    {}

// request is one store operation queued on a non-blocking session.
type request struct {
	ctx    context.Context
	fn     func(ctx context.Context, u *unitOfWork) error
	result chan error
}

// nonBlockingSession forwards operations to the goroutine that owns the
// leased connection. Operations run strictly in submission order; the caller
// only waits on channels, so a cancelled context frees it immediately while
// the owner goroutine finishes, rolls back and returns the connection.
type nonBlockingSession struct {
	requests chan request
	done     chan struct{}
	closed   bool
}

func newNonBlockingSession() *nonBlockingSession {
	return &nonBlockingSession{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

func (*nonBlockingSession) Mode() Mode { return ModeNonBlocking }
func (*nonBlockingSession) sealed()    {}

// serve executes queued requests against u until the session is closed.
func (s *nonBlockingSession) serve(u *unitOfWork) {
	for req := range s.requests {
		req.result <- runRequest(req, u)
	}
}

func runRequest(req request, u *unitOfWork) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = u.abort(fmt.Errorf("panic in session operation: %v", r))
		}
	}()
	return req.fn(req.ctx, u)
}

// await submits fn and suspends the caller until it completes or ctx ends.
func (s *nonBlockingSession) await(ctx context.Context, fn func(context.Context, *unitOfWork) error) error {
	if s.closed {
		return ErrSessionClosed
	}
	req := request{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting requests. When wait is set it blocks until the owner
// goroutine has released the connection.
func (s *nonBlockingSession) close(wait bool) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.requests)
	if wait {
		<-s.done
	}
}
