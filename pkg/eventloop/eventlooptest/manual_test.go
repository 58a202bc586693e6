package eventlooptest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAdvanceFiresInDueOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(25*time.Millisecond), m.Now())

	m.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestEveryAndStop(t *testing.T) {
	m := NewManual(epoch)
	var at []time.Duration

	h := m.Every(10*time.Millisecond, func() { at = append(at, m.Now().Sub(epoch)) })
	m.Advance(35 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, at)
	assert.Equal(t, 1, m.PendingPeriodic())

	h.Stop()
	m.Advance(time.Second)
	assert.Len(t, at, 3)
	assert.Equal(t, 0, m.Pending())
}

func TestCallbackMaySchedule(t *testing.T) {
	m := NewManual(epoch)
	fired := 0

	m.AfterFunc(time.Millisecond, func() {
		m.AfterFunc(time.Millisecond, func() { fired++ })
	})
	m.Advance(5 * time.Millisecond)

	assert.Equal(t, 1, fired)
}
