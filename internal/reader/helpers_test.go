package reader

import (
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/document"
	"github.com/metcalfc/narrate/internal/speech"
)

// fakeSpeech records utterances and completes them only when told to.
type fakeSpeech struct {
	spoken  []string
	rates   []float64
	pending func(speech.Outcome)
	paused  bool
	cancels int
}

func (f *fakeSpeech) Speak(u speech.Utterance, done func(speech.Outcome)) {
	f.interrupt()
	f.spoken = append(f.spoken, u.Text)
	f.rates = append(f.rates, u.Rate)
	f.pending = done
	f.paused = false
}

func (f *fakeSpeech) interrupt() {
	if done := f.pending; done != nil {
		f.pending = nil
		done(speech.Interrupted)
	}
}

func (f *fakeSpeech) Cancel() {
	f.cancels++
	f.paused = false
	f.interrupt()
}

func (f *fakeSpeech) finish() bool {
	done := f.pending
	if done == nil {
		return false
	}
	f.pending = nil
	done(speech.Finished)
	return true
}

func (f *fakeSpeech) Pause() {
	if f.pending != nil {
		f.paused = true
	}
}

func (f *fakeSpeech) Resume()        { f.paused = false }
func (f *fakeSpeech) Speaking() bool { return f.pending != nil && !f.paused }
func (f *fakeSpeech) Pending() bool  { return false }
func (f *fakeSpeech) Paused() bool   { return f.paused }

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stops   int
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.stops++
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeTimers struct {
	timers []*fakeTimer
}

func (f *fakeTimers) After(d time.Duration, fn func()) Timer {
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// fire runs the most recent timer that is still armed.
func (f *fakeTimers) fire() bool {
	for i := len(f.timers) - 1; i >= 0; i-- {
		t := f.timers[i]
		if !t.stopped && !t.fired {
			t.fired = true
			t.fn()
			return true
		}
	}
	return false
}

func (f *fakeTimers) stops() int {
	n := 0
	for _, t := range f.timers {
		n += t.stops
	}
	return n
}

// countingKeys counts subscriptions and removals on a real KeyBus.
type countingKeys struct {
	*KeyBus
	subscribed   int
	unsubscribed int
}

func (c *countingKeys) Subscribe(fn func(*KeyEvent)) func() {
	c.subscribed++
	unsubscribe := c.KeyBus.Subscribe(fn)
	return func() {
		c.unsubscribed++
		unsubscribe()
	}
}

type recordingActions struct {
	followed  []string
	focused   int
	blurred   int
	activated int
}

func (a *recordingActions) Follow(href string)  { a.followed = append(a.followed, href) }
func (a *recordingActions) Focus(*html.Node)    { a.focused++ }
func (a *recordingActions) Blur(*html.Node)     { a.blurred++ }
func (a *recordingActions) Activate(*html.Node) { a.activated++ }

type harness struct {
	t       *testing.T
	loop    *Loop
	keys    *countingKeys
	speech  *fakeSpeech
	timers  *fakeTimers
	actions *recordingActions
	root    *html.Node
	seq     *Sequence
	nav     *Navigator
}

func newHarness(t *testing.T, src string) *harness {
	t.Helper()
	root, err := document.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := &harness{
		t:       t,
		loop:    NewLoop(),
		keys:    &countingKeys{KeyBus: NewKeyBus()},
		speech:  &fakeSpeech{},
		timers:  &fakeTimers{},
		actions: &recordingActions{},
		root:    root,
		seq:     Build(root),
	}
	h.nav = New(h.seq, Options{
		Speech:    h.speech,
		Keys:      h.keys,
		Timers:    h.timers,
		Scheduler: h.loop,
		Actions:   h.actions,
		Rate:      1,
	})
	return h
}

func (h *harness) drain() { h.loop.Drain() }

// do runs an operation and lets every posted callback settle.
func (h *harness) do(op func()) {
	op()
	h.drain()
}

// finish completes the current utterance.
func (h *harness) finish() {
	h.t.Helper()
	if !h.speech.finish() {
		h.t.Fatal("nothing is being spoken")
	}
	h.drain()
}

// expire fires the armed interaction timer.
func (h *harness) expire() {
	h.t.Helper()
	if !h.timers.fire() {
		h.t.Fatal("no armed timer")
	}
	h.drain()
}

func (h *harness) press(key string) *KeyEvent {
	ev := &KeyEvent{Key: key}
	h.keys.Dispatch(ev)
	h.drain()
	return ev
}

func (h *harness) last() string {
	if len(h.speech.spoken) == 0 {
		return ""
	}
	return h.speech.spoken[len(h.speech.spoken)-1]
}

func (h *harness) expectLast(want string) {
	h.t.Helper()
	if got := h.last(); got != want {
		h.t.Fatalf("last utterance = %q, want %q (all: %q)", got, want, h.speech.spoken)
	}
}

func (h *harness) expectPos(want int) {
	h.t.Helper()
	if got := h.nav.Position(); got != want {
		h.t.Fatalf("position = %d, want %d", got, want)
	}
}

func (h *harness) expectMode(want Mode) {
	h.t.Helper()
	if got := h.nav.Mode(); got != want {
		h.t.Fatalf("mode = %v, want %v", got, want)
	}
}

func paragraphs(texts ...string) string {
	s := "<html><head></head><body>"
	for _, t := range texts {
		s += "<p>" + t + "</p>"
	}
	return s + "</body></html>"
}
