package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

type event struct {
	id    ports.EventID
	at    time.Duration
	seq   uint64
	fn    func()
	index int
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Simulator is a discrete-event scheduler. Time only moves when events are
// stepped. It is safe to schedule from other goroutines; events themselves
// run on the goroutine that calls Step, RunUntil or Run.
type Simulator struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	lastID  ports.EventID
	queue   eventHeap
	pending map[ports.EventID]*event
	wake    chan struct{}
}

// NewSimulator returns a simulator at time zero.
func NewSimulator() *Simulator {
	return &Simulator{
		pending: make(map[ports.EventID]*event),
		wake:    make(chan struct{}, 1),
	}
}

// Now returns the current simulated time.
func (s *Simulator) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule runs fn delay after the current time. Negative delays are
// treated as zero.
func (s *Simulator) Schedule(delay time.Duration, fn func()) ports.EventID {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.lastID++
	s.seq++
	e := &event{id: s.lastID, at: s.now + delay, seq: s.seq, fn: fn}
	heap.Push(&s.queue, e)
	s.pending[e.id] = e
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return e.id
}

// ScheduleNow runs fn at the current time after already queued events.
func (s *Simulator) ScheduleNow(fn func()) ports.EventID {
	return s.Schedule(0, fn)
}

// Cancel removes a pending event.
func (s *Simulator) Cancel(id ports.EventID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	heap.Remove(&s.queue, e.index)
}

// IsPending reports whether an event has neither run nor been cancelled.
func (s *Simulator) IsPending(id ports.EventID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// Pending returns the number of queued events.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextTime returns the time of the earliest queued event.
func (s *Simulator) NextTime() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at, true
}

// Step runs the earliest event and reports whether one was run.
func (s *Simulator) Step() bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	e := heap.Pop(&s.queue).(*event)
	delete(s.pending, e.id)
	if e.at > s.now {
		s.now = e.at
	}
	s.mu.Unlock()

	e.fn()
	return true
}

// RunUntil runs every event due at or before t and leaves the clock at t.
func (s *Simulator) RunUntil(t time.Duration) {
	for {
		next, ok := s.NextTime()
		if !ok || next > t {
			break
		}
		s.Step()
	}
	s.mu.Lock()
	if t > s.now {
		s.now = t
	}
	s.mu.Unlock()
}

// Run steps until the queue is empty.
func (s *Simulator) Run() {
	for s.Step() {
	}
}

// Wake is signalled whenever an event is scheduled.
func (s *Simulator) Wake() <-chan struct{} { return s.wake }
