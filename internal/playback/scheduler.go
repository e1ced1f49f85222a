// Package playback schedules decoded audio fragments for gapless sequential
// output against a virtual clock. Fragments are played in arrival order; no
// reordering is performed because the remote session delivers them in the
// order they must be heard.
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wicara/internal/audio"
)

// Clock is the virtual output clock fragments are scheduled against. The
// monotonic implementation is used in production; tests substitute their own.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	start time.Time
}

func (c *monotonicClock) Now() time.Duration {
	return time.Since(c.start)
}

// NewMonotonicClock returns a clock that starts at zero when created.
func NewMonotonicClock() Clock {
	return &monotonicClock{start: time.Now()}
}

// Sink receives a fragment at the moment it becomes audible.
type Sink func(buf *audio.Buffer)

type fragment struct {
	startTimer *time.Timer
	doneTimer  *time.Timer
}

// Scheduler owns the playback cursor and the set of active fragments. The
// cursor is monotonically non-decreasing except on Interrupt.
type Scheduler struct {
	clock  Clock
	sink   Sink
	logger *zap.Logger

	mu     sync.Mutex
	cursor time.Duration
	nextID uint64
	active map[uint64]*fragment
	closed bool
}

// NewScheduler creates a scheduler that emits fragments to sink at their
// scheduled start times.
func NewScheduler(clock Clock, sink Sink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		logger: logger,
		active: make(map[uint64]*fragment),
	}
}

// Schedule queues a fragment for playback at max(clock.Now(), cursor) and
// advances the cursor by exactly the fragment's duration, so consecutive
// fragments play back-to-back with no gap and no overlap. Returns the start
// time assigned on the virtual clock.
func (s *Scheduler) Schedule(buf *audio.Buffer) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	start := now
	if s.cursor > start {
		start = s.cursor
	}
	d := buf.Duration()
	s.cursor = start + d

	if s.closed {
		return start
	}

	id := s.nextID
	s.nextID++
	f := &fragment{}
	s.active[id] = f

	f.startTimer = time.AfterFunc(start-now, func() {
		if s.sink != nil {
			s.sink(buf)
		}
	})
	f.doneTimer = time.AfterFunc(start-now+d, func() {
		s.complete(id)
	})

	return start
}

// complete removes a fragment from the active set after it has played out.
func (s *Scheduler) complete(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// Interrupt force-stops every playing and pending fragment and resets the
// cursor to the current clock time, so the next fragment starts immediately
// instead of queueing behind audio the user will never hear.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := len(s.active)
	for id, f := range s.active {
		f.startTimer.Stop()
		f.doneTimer.Stop()
		delete(s.active, id)
	}
	s.cursor = s.clock.Now()

	if stopped > 0 {
		s.logger.Info("Playback interrupted",
			zap.Int("fragmentsDiscarded", stopped))
	}
}

// Close releases the scheduler, stopping outstanding timers. Corresponds to
// releasing the output audio context at call teardown. Idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, f := range s.active {
		f.startTimer.Stop()
		f.doneTimer.Stop()
		delete(s.active, id)
	}
}

// ActiveCount reports how many fragments are playing or pending.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Cursor returns the next start offset on the virtual clock.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
