// Package eventlooptest provides a virtual clock implementing
// eventloop.Scheduler for deterministic tests.
package eventlooptest

import (
	"time"

	"github.com/open-teleop/operator/pkg/eventloop"
)

var _ eventloop.Runner = (*Manual)(nil)

// Manual fires scheduled callbacks synchronously from Advance, in due-time
// order. It is not safe for concurrent use, mirroring the loop's single
// goroutine.
type Manual struct {
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	m      *Manual
	due    time.Time
	period time.Duration
	fn     func()
	seq    int
	done   bool
}

// NewManual starts the virtual clock at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	return m.now
}

// Post runs fn immediately.
func (m *Manual) Post(fn func()) bool {
	fn()
	return true
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) eventloop.Handle {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) eventloop.Handle {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) *manualTask {
	m.seq++
	t := &manualTask{m: m, due: m.now.Add(d), period: period, fn: fn, seq: m.seq}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every callback that
// becomes due on the way. Callbacks may schedule or stop other tasks.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.next(target)
		if next == nil {
			break
		}
		m.now = next.due
		if next.period > 0 {
			next.due = next.due.Add(next.period)
		} else {
			next.done = true
			m.remove(next)
		}
		next.fn()
	}
	m.now = target
}

// Pending counts tasks that are scheduled and not stopped.
func (m *Manual) Pending() int {
	return len(m.tasks)
}

// PendingPeriodic counts repeating tasks that are scheduled.
func (m *Manual) PendingPeriodic() int {
	n := 0
	for _, t := range m.tasks {
		if t.period > 0 {
			n++
		}
	}
	return n
}

func (m *Manual) next(target time.Time) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.due.After(target) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) remove(t *manualTask) {
	for i, other := range m.tasks {
		if other == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

func (t *manualTask) Stop() {
	if t.done {
		return
	}
	t.done = true
	t.m.remove(t)
}
