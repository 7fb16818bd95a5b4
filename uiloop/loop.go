/*
Package uiloop provides the single UI affinity execution context.  All
display and feedback state is owned by tasks running on one Loop, so that
state needs no locking: mutation is serialized by funnelling every change
through the loop's task queue.
*/
package uiloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned when work is submitted to a loop that has stopped
var ErrClosed = errors.New("uiloop: loop closed")

// Timer is a handle to a task scheduled to run on the loop in the future
type Timer interface {
	// Stop prevents the task from running.  It returns false if the task
	// has already run or been stopped.
	Stop() bool
}

// Loop runs tasks one at a time, in submission order, on a single goroutine
type Loop struct {
	tasks chan func()
	// done is closed when the loop stops running
	done  chan struct{}
	close sync.Once
	log   *zap.Logger
}

// New returns a loop with a task queue of the given size.  Run must be
// called to start processing tasks.
func New(queueSize int, log *zap.Logger) *Loop {

	if log == nil {
		log = zap.NewNop()
	}

	return &Loop{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Run processes tasks until the context is cancelled
func (l *Loop) Run(ctx context.Context) error {

	defer l.close.Do(func() {
		close(l.done)
	})

	l.log.Debug("ui loop started")

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("ui loop stopped", zap.Int("pending", len(l.tasks)))
			return ctx.Err()

		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn to run on the loop.  It blocks while the queue is full and
// returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {

	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to complete
func (l *Loop) Call(ctx context.Context, fn func()) error {

	finished := make(chan struct{})

	ok := l.Post(func() {
		defer close(finished)
		fn()
	})

	if !ok {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Now returns the current time
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn to run on the loop once d has elapsed.  Waiting does
// not block the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {

	t := &timer{}

	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// the timer may have been stopped after firing but before
			// reaching the front of the queue
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})

	return t
}

// timer is the Timer handle returned by AfterFunc
type timer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// Stop prevents the timer task from running
func (t *timer) Stop() bool {

	if !t.stopped.CompareAndSwap(false, true) {
		return false
	}

	t.t.Stop()
	return true
}
