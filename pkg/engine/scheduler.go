package engine

import (
	"sync"
	"time"
)

// Scheduler defers engine re-entry. Advancement after a step settles is
// scheduled rather than executed inline, so a long step sequence never
// holds a stack for the workflow's lifetime and a restarted process can
// resume purely from persisted state.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
	Stop()
}

// timerScheduler runs scheduled work on timer goroutines.
type timerScheduler struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	timers  map[*time.Timer]struct{}
	stopped bool
}

func newTimerScheduler() *timerScheduler {
	return &timerScheduler{timers: make(map[*time.Timer]struct{})}
}

func (s *timerScheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, t)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		fn()
	})
	s.timers[t] = struct{}{}
	s.mu.Unlock()
}

// Stop cancels pending timers and waits for in-flight work. Progress is
// not lost: unfired re-entries are rebuilt from persisted state on the
// next process start.
func (s *timerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
