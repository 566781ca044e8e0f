package timer

import (
	"testing"
	"time"
)

func TestTimerManager_FiresOnce(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	fired := make(chan struct{}, 2)
	m.AddTimer(10*time.Millisecond, 0, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if m.Pending() != 0 {
		t.Errorf("Expected no pending tasks after a one-shot fired, got %d", m.Pending())
	}
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	fired := make(chan struct{}, 1)
	id := m.AddTimer(30*time.Millisecond, 0, func() { fired <- struct{}{} })
	m.RemoveTimer(id)

	select {
	case <-fired:
		t.Fatal("removed timer fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestTimerManager_DueOrder(t *testing.T) {
	m := NewTimerManagerWithResolution(time.Hour)
	defer m.Stop()

	var order []int
	m.AddTimer(20*time.Millisecond, 0, func() { order = append(order, 2) })
	m.AddTimer(10*time.Millisecond, 0, func() { order = append(order, 1) })
	m.AddTimer(time.Hour, 0, func() { order = append(order, 3) })

	for _, cb := range m.due(time.Now().Add(time.Second)) {
		cb()
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Expected callbacks [1 2], got %v", order)
	}
	if m.Pending() != 1 {
		t.Errorf("Expected the far timer to stay queued, got %d pending", m.Pending())
	}
}
