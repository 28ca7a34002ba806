// Package domain provides the serialization primitive behind every isolated
// domain: a single goroutine draining a FIFO queue of calls, so state owned
// by the loop is never touched concurrently.
package domain

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Do when the loop has shut down before the call
// was accepted.
var ErrClosed = errors.New("domain: loop closed")

type call struct {
	fn  func()
	ran chan struct{}
}

// Loop serializes calls onto one goroutine. Calls execute strictly in the
// order they were accepted; an accepted call always runs, even during
// shutdown drain.
type Loop struct {
	name      string
	calls     chan call
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop creates a loop with the given queue depth and starts its worker
// goroutine via g.
func NewLoop(g *Group, name string, queueSize int) (*Loop, error) {
	if queueSize <= 0 {
		queueSize = 32
	}
	l := &Loop{
		name:  name,
		calls: make(chan call, queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if !g.Go(l.run) {
		return nil, ErrClosed
	}
	return l, nil
}

func (l *Loop) Name() string { return l.name }

func (l *Loop) run() {
	for {
		select {
		case c := <-l.calls:
			c.fn()
			close(c.ran)
		case <-l.quit:
			// Drain everything already accepted before exiting.
			for {
				select {
				case c := <-l.calls:
					c.fn()
					close(c.ran)
				default:
					close(l.done)
					return
				}
			}
		}
	}
}

// Do enqueues fn and suspends the caller until it has run. ctx only guards
// the enqueue: once accepted, the call runs to completion regardless of
// cancellation.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	c := call{fn: fn, ran: make(chan struct{})}
	select {
	case l.calls <- c:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.ran:
		return nil
	case <-l.done:
		// The loop drained and exited without running this call; it raced
		// the final drain and was never accepted.
		select {
		case <-c.ran:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close asks the loop to drain and exit; the Group's StopAndWait bounds
// the wait for the goroutine itself.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
}

// DoErr runs fn on the loop and returns its error to the caller.
func (l *Loop) DoErr(ctx context.Context, fn func() error) error {
	var err error
	if doErr := l.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// Call runs fn on the loop and returns its result to the caller.
func Call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	var out T
	var err error
	doErr := l.Do(ctx, func() {
		out, err = fn()
	})
	if doErr != nil {
		var zero T
		return zero, doErr
	}
	return out, err
}
