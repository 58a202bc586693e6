// Package eventloop runs every state transition of the operator session on
// one goroutine. Other goroutines hand work to the loop with Post; timers
// created through the loop deliver their callbacks the same way, so
// callbacks never overlap and need no locking.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// ErrClosed is returned when work is handed to a loop that has stopped.
var ErrClosed = errors.New("event loop is closed")

// Handle is a cancellable scheduled task. Stop must be called from the loop
// goroutine; once it returns the callback is guaranteed not to run again,
// even if the underlying timer already fired.
type Handle interface {
	Stop()
}

// Scheduler creates tasks whose callbacks run on the owning loop.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Handle
	Every(d time.Duration, fn func()) Handle
}

// Runner is a Scheduler that also accepts one-off callbacks.
type Runner interface {
	Scheduler
	Post(fn func()) bool
}

// Ensure Loop implements the Runner interface
var _ Runner = (*Loop)(nil)

// Loop is a FIFO queue of callbacks drained by a single goroutine.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger customlog.Logger
}

// New creates a loop with room for queueSize pending callbacks.
func New(queueSize int, logger customlog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run drains callbacks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debugf("Event loop started")
	defer l.logger.Debugf("Event loop stopped")

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("Recovered panic in event loop callback: %v", r)
		}
	}()
	fn()
}

// Close stops the loop. Pending callbacks are discarded.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post enqueues fn. It blocks while the queue is full and returns false if
// the loop stops first.
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

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
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

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	t := &task{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// Every runs fn on the loop every d until stopped. At most one tick is
// queued at a time: ticks that arrive while the previous one is still
// waiting for the loop are dropped, so a stalled loop catches up with a
// single call.
func (l *Loop) Every(d time.Duration, fn func()) Handle {
	t := &task{
		ticker: time.NewTicker(d),
		quit:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				if !t.queued.CompareAndSwap(false, true) {
					continue
				}
				l.Post(func() {
					t.queued.Store(false)
					if !t.stopped {
						fn()
					}
				})
			case <-t.quit:
				return
			case <-l.done:
				return
			}
		}
	}()
	return t
}

// task is the Handle returned by Loop. stopped is only read and written on
// the loop goroutine; queued is shared with the ticker goroutine.
type task struct {
	stopped bool
	queued  atomic.Bool
	timer   *time.Timer
	ticker  *time.Ticker
	quit    chan struct{}
}

func (t *task) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.quit)
	}
}
