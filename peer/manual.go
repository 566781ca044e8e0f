package peer

import (
	"sort"
	"time"
)

// ManualScheduler fires callbacks only when Advance is called. It suits
// deterministic simulations and tests.
type ManualScheduler struct {
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	at      time.Duration
	fn      func()
	stopped bool
}

func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	t := &manualTask{at: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.stopped = true }
}

// Pending counts scheduled, unstopped callbacks.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward by d and runs every callback that became due,
// earliest first.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.now += d
	sort.SliceStable(s.tasks, func(i, j int) bool { return s.tasks[i].at < s.tasks[j].at })

	var keep []*manualTask
	var due []*manualTask
	for _, t := range s.tasks {
		switch {
		case t.stopped:
		case t.at <= s.now:
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.tasks = keep
	for _, t := range due {
		if !t.stopped {
			t.fn()
		}
	}
}
