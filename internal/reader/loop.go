package reader

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs callbacks one at a time on the navigator's goroutine.
type Scheduler interface {
	Post(fn func())
}

// Loop is a Scheduler backed by an unbounded queue. Post may be called from
// any goroutine; queued functions run on whichever goroutine calls Run or
// Drain.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Drain runs queued functions, including ones they post, until the queue is
// empty, and returns how many ran.
func (l *Loop) Drain() int {
	ran := 0
	for {
		fn, ok := l.pop()
		if !ok {
			return ran
		}
		fn()
		ran++
	}
}

// Run drains the queue whenever work is posted until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback and reports whether it had not yet fired.
	Stop() bool
}

// Timers schedules one-shot callbacks. Callbacks may run on any goroutine.
type Timers interface {
	After(d time.Duration, fn func()) Timer
}

// Clock is the wall-clock Timers.
type Clock struct{}

func (Clock) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
