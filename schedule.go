package flightplan

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// schedule owns every timer a run arms.
// Timers are created from the runner's clock and released together by clear,
// so nothing armed by a run can fire once the run has returned.
type schedule struct {
	clock clockwork.Clock

	mutex  sync.Mutex
	timers map[int]clockwork.Timer
	nextID int
}

func newSchedule(clock clockwork.Clock) *schedule {
	return &schedule{
		clock:  clock,
		timers: make(map[int]clockwork.Timer),
	}
}

// after arms a timer for d. The returned release stops it and forgets it;
// calling release more than once is harmless.
func (s *schedule) after(d time.Duration) (<-chan time.Time, func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.nextID
	s.nextID++
	timer := s.clock.NewTimer(d)
	s.timers[id] = timer

	return timer.Chan(), func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
	}
}

// pending returns the number of armed timers
func (s *schedule) pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.timers)
}

// clear stops every armed timer
func (s *schedule) clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
