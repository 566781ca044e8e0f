package peer

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/roomsync/timer"
)

// Loop executes posted functions one at a time on a single goroutine. All of
// a peer's core work (bus events, UI input, timers) is funnelled through it.
type Loop struct {
	inbox chan func()
}

func NewLoop(buffer int) *Loop {
	return &Loop{inbox: make(chan func(), buffer)}
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) {
	l.inbox <- fn
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Do(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	<-done
}

func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.inbox:
			fn()
		}
	}
}

// LoopScheduler schedules through a TimerManager and runs the callbacks on a
// Loop.
type LoopScheduler struct {
	Timers *timer.TimerManager
	Loop   *Loop
}

func (s LoopScheduler) AfterFunc(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	stopped := false
	id := s.Timers.AddTimer(d, 0, func() {
		s.Loop.Post(func() {
			mu.Lock()
			skip := stopped
			mu.Unlock()
			if !skip {
				fn()
			}
		})
	})
	return func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		s.Timers.RemoveTimer(id)
	}
}
