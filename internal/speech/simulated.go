package speech

import (
	"sync"
	"time"
)

// Simulated "speaks" by waiting as long as the utterance would take to say,
// so a host can show the text being read.
type Simulated struct {
	WPM int

	mu     sync.Mutex
	cur    *job
	paused bool
}

type job struct {
	u         Utterance
	done      func(Outcome)
	timer     *time.Timer
	started   time.Time
	remaining time.Duration
	ended     bool
}

// NewSimulated creates a simulated backend speaking at wpm words per minute.
func NewSimulated(wpm int) *Simulated {
	return &Simulated{WPM: wpm}
}

func (s *Simulated) Speak(u Utterance, done func(Outcome)) {
	s.mu.Lock()
	prev := s.stopLocked()
	j := &job{u: u, done: done, remaining: Duration(u, s.WPM)}
	s.cur = j
	s.paused = false
	s.startLocked(j)
	s.mu.Unlock()

	if prev != nil {
		prev.done(Interrupted)
	}
}

func (s *Simulated) startLocked(j *job) {
	j.started = time.Now()
	j.timer = time.AfterFunc(j.remaining, func() { s.complete(j) })
}

func (s *Simulated) complete(j *job) {
	s.mu.Lock()
	if j.ended || s.cur != j {
		s.mu.Unlock()
		return
	}
	j.ended = true
	s.cur = nil
	s.mu.Unlock()
	j.done(Finished)
}

// stopLocked detaches the current job and returns it if it still owes a
// completion.
func (s *Simulated) stopLocked() *job {
	j := s.cur
	if j == nil || j.ended {
		return nil
	}
	j.ended = true
	if j.timer != nil {
		j.timer.Stop()
	}
	s.cur = nil
	s.paused = false
	return j
}

func (s *Simulated) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.paused {
		return
	}
	if !s.cur.timer.Stop() {
		// already finishing
		return
	}
	s.cur.remaining -= time.Since(s.cur.started)
	if s.cur.remaining < 0 {
		s.cur.remaining = 0
	}
	s.paused = true
}

func (s *Simulated) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || !s.paused {
		return
	}
	s.paused = false
	s.startLocked(s.cur)
}

func (s *Simulated) Cancel() {
	s.mu.Lock()
	j := s.stopLocked()
	s.mu.Unlock()
	if j != nil {
		j.done(Interrupted)
	}
}

func (s *Simulated) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Pending is always false: a new Speak replaces the current utterance
// instead of queueing behind it.
func (s *Simulated) Pending() bool { return false }

func (s *Simulated) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
