package reader

import (
	"math"
	"testing"

	"github.com/metcalfc/narrate/internal/document"
)

func TestReadHeadingAndParagraph(t *testing.T) {
	h := newHarness(t, `<html><head></head><body><h1>Intro</h1><p>Hello</p></body></html>`)
	if h.seq.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.seq.Len())
	}

	h.do(h.nav.Start)
	h.expectLast("Heading 1: Intro")
	h.expectMode(Speaking)
	h.finish()
	h.expectLast("Hello")
	h.finish()
	h.expectLast("End of document.")
	h.expectPos(0)
	h.expectMode(RestartPending)

	want := []string{"Heading 1: Intro", "Hello", "End of document."}
	if len(h.speech.spoken) != len(want) {
		t.Fatalf("spoken = %q, want %q", h.speech.spoken, want)
	}

	// the end leaves a restart pending
	h.do(h.nav.Start)
	h.expectLast("Heading 1: Intro")
	h.expectPos(0)
}

func TestStartEmptyDocument(t *testing.T) {
	h := newHarness(t, `<div>nothing here</div>`)
	h.do(h.nav.Start)
	h.expectLast("ERROR: No readable elements in document.")
	h.expectMode(Idle)
	h.finish()
	if len(h.speech.spoken) != 1 {
		t.Errorf("spoken = %q", h.speech.spoken)
	}
}

func TestStartWhileReadingReturnsToTop(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b", "c"))
	h.do(h.nav.Start)
	h.finish()
	h.expectLast("b")

	// not restart-pending: the cursor moves before the start and the
	// interrupted unit's continuation picks up from there
	h.do(h.nav.Start)
	h.expectLast("a")
	h.expectPos(0)
}

func TestStartWhenIdleOnlyMovesCursor(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))
	h.do(h.nav.Start)
	h.finish()
	h.expectLast("b")
	h.nav.halt()
	h.drain()

	spoken := len(h.speech.spoken)
	h.do(h.nav.Start)
	h.expectPos(-1)
	if len(h.speech.spoken) != spoken {
		t.Errorf("Start should not speak, got %q", h.speech.spoken[spoken:])
	}

	// with nothing to interrupt, Next reads on from the cursor itself
	h.do(h.nav.Next)
	h.expectLast("a")
	h.expectPos(0)
	h.expectMode(Speaking)
}

func TestNextBeforeStart(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))
	h.do(h.nav.Next)
	h.expectLast("a")
	h.expectPos(0)

	h.finish()
	h.expectLast("b")
}

func TestNextAfterEndOfDocumentFinished(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b", "c"))
	h.do(h.nav.Start)
	h.finish()
	h.finish()
	h.finish()
	h.expectLast("End of document.")
	h.finish()
	h.expectMode(RestartPending)

	h.do(h.nav.Next)
	h.expectLast("a")
	h.expectPos(0)
	h.expectMode(Speaking)
}

func TestNextPreviousRoundTrip(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b", "c", "d", "e"))
	h.do(h.nav.Start)
	h.finish()
	h.finish()
	h.expectLast("c")
	h.expectPos(2)

	h.do(h.nav.Next)
	h.expectLast("d")
	h.expectPos(3)

	h.do(h.nav.Previous)
	h.expectLast("c")
	h.expectPos(2)

	h.do(h.nav.Previous)
	h.expectLast("b")
	h.expectPos(1)

	h.do(h.nav.Next)
	h.do(h.nav.Next)
	h.expectLast("d")
	h.expectPos(3)
}

func TestNextAtLastUnit(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))
	h.do(h.nav.Start)
	h.finish()
	h.expectLast("b")

	h.do(h.nav.Next)
	h.expectLast("End of document.")
	h.expectPos(0)
	h.expectMode(RestartPending)

	// the interrupted "b" must not continue on its own
	h.finish()
	h.expectLast("End of document.")

	h.do(h.nav.Start)
	h.expectLast("a")
}

func TestPreviousAtStart(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))
	h.do(h.nav.Previous)
	h.expectLast("a")
	h.expectPos(0)

	for i := 0; i < 2; i++ {
		h.do(h.nav.Previous)
		h.expectLast("a")
		h.expectPos(0)
	}
}

func TestCancelSkipsInteraction(t *testing.T) {
	h := newHarness(t, `<a href="https://www.example.com/x">Ex</a><p>after</p>`)
	h.do(h.nav.Start)
	h.expectLast("A link to example.com with description Ex. Press Enter to visit in new tab.")

	h.do(h.nav.Next)
	h.expectLast("after")
	if h.keys.subscribed != 1 || len(h.timers.timers) != 0 {
		t.Errorf("no window should open: subscribed=%d timers=%d", h.keys.subscribed, len(h.timers.timers))
	}
}

func TestNextClosesOpenWindow(t *testing.T) {
	h := newHarness(t, `<p>a</p><button>b</button><p>c</p>`)
	h.do(h.nav.Start)
	h.finish()
	h.finish()
	h.expectMode(Interacting)

	h.do(h.nav.Next)
	h.expectLast("c")
	h.expectPos(2)
	if h.keys.unsubscribed != 1 {
		t.Errorf("unsubscribed = %d, want 1", h.keys.unsubscribed)
	}
}

func TestHighlight(t *testing.T) {
	h := newHarness(t, `<p style="background-color: red">a</p><p>b</p>`)
	first := h.seq.Units[0].Node
	second := h.seq.Units[1].Node

	h.do(h.nav.Start)
	if got := document.Style(first, document.HighlightProperty); got != HighlightColor {
		t.Errorf("highlight = %q, want %q", got, HighlightColor)
	}
	h.finish()
	if got := document.Style(first, document.HighlightProperty); got != "red" {
		t.Errorf("restored background = %q, want red", got)
	}
	if got := document.Style(second, document.HighlightProperty); got != HighlightColor {
		t.Errorf("second highlight = %q", got)
	}
	h.finish()
	if _, ok := document.Attr(second, "style"); ok {
		t.Error("style attribute should be removed after restore")
	}
}

func TestRateChanges(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))
	h.nav.SpeedUp()
	if math.Abs(h.nav.Rate()-1.1) > 1e-9 {
		t.Errorf("rate = %v, want 1.1", h.nav.Rate())
	}
	h.do(h.nav.Start)
	if got := h.speech.rates[len(h.speech.rates)-1]; math.Abs(got-1.1) > 1e-9 {
		t.Errorf("utterance rate = %v", got)
	}

	for i := 0; i < 100; i++ {
		h.nav.SpeedUp()
	}
	if h.nav.Rate() != MaxRate {
		t.Errorf("rate = %v, want %v", h.nav.Rate(), MaxRate)
	}
	for i := 0; i < 100; i++ {
		h.nav.SlowDown()
	}
	if h.nav.Rate() != MinRate {
		t.Errorf("rate = %v, want %v", h.nav.Rate(), MinRate)
	}
}

func TestClampRate(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1, 1},
		{0, 1},
		{-2, 1},
		{math.NaN(), 1},
		{0.1, MinRate},
		{9, MaxRate},
		{2.5, 2.5},
	}
	for _, tt := range tests {
		if got := ClampRate(tt.in); got != tt.want {
			t.Errorf("ClampRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTogglePause(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b"))

	// nothing playing: starts
	h.press("p")
	h.expectLast("a")

	h.press("p")
	if !h.speech.Paused() || !h.nav.Status().Paused {
		t.Fatal("expected paused")
	}
	h.press("P")
	if h.speech.Paused() {
		t.Fatal("expected resumed")
	}
	h.expectPos(0)
}

func TestGlobalKeys(t *testing.T) {
	h := newHarness(t, paragraphs("a", "b", "c"))
	ev := h.press(" ")
	if !ev.DefaultPrevented() {
		t.Error("space should be consumed")
	}
	h.expectLast("a")

	h.press("ArrowDown")
	h.expectLast("b")
	h.press("ArrowUp")
	h.expectLast("a")

	h.press("ArrowRight")
	if h.nav.Rate() <= 1 {
		t.Errorf("rate = %v after speed up", h.nav.Rate())
	}
	h.press("ArrowLeft")

	// ctrl chords and table keys are ignored outside tables
	spoken := len(h.speech.spoken)
	h.keys.Dispatch(&KeyEvent{Key: "ArrowDown", Ctrl: true})
	h.press("j")
	h.press(";")
	h.drain()
	if len(h.speech.spoken) != spoken {
		t.Errorf("unexpected speech %q", h.speech.spoken[spoken:])
	}
}

func TestCustomBindings(t *testing.T) {
	root, err := document.Parse(paragraphs("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseBindings(map[string]string{"n": "next", "arrowdown": "none"})
	if err != nil {
		t.Fatal(err)
	}
	loop := NewLoop()
	keys := NewKeyBus()
	sp := &fakeSpeech{}
	nav := New(Build(root), Options{Speech: sp, Keys: keys, Scheduler: loop, Timers: &fakeTimers{}, Bindings: b})
	nav.Start()
	loop.Drain()

	keys.Dispatch(&KeyEvent{Key: "ArrowDown"})
	loop.Drain()
	if nav.Position() != 0 {
		t.Fatalf("ArrowDown should be unbound, position = %d", nav.Position())
	}
	keys.Dispatch(&KeyEvent{Key: "n"})
	loop.Drain()
	if nav.Position() != 1 {
		t.Fatalf("n should move next, position = %d", nav.Position())
	}

	nav.Close()
	if keys.Len() != 0 {
		t.Errorf("Close left %d subscribers", keys.Len())
	}
}

func TestNotify(t *testing.T) {
	root, err := document.Parse(paragraphs("a"))
	if err != nil {
		t.Fatal(err)
	}
	var got []Status
	loop := NewLoop()
	nav := New(Build(root), Options{
		Speech:    &fakeSpeech{},
		Scheduler: loop,
		Timers:    &fakeTimers{},
		Notify:    func(s Status) { got = append(got, s) },
	})
	nav.Start()
	loop.Drain()
	if len(got) == 0 {
		t.Fatal("no status notifications")
	}
	last := got[len(got)-1]
	if last.Mode != Speaking || last.Utterance != "a" || last.Length != 1 || last.UnitID != "sr-id0" {
		t.Errorf("status = %+v", last)
	}
}

func TestJumpTo(t *testing.T) {
	h := newHarness(t, `<h1>One</h1><p>first</p><h2>Two</h2><p>second</p>`)
	h.do(h.nav.Start)
	h.do(func() { h.nav.JumpTo(2) })
	h.expectLast("Heading 2: Two")
	h.expectPos(2)
	h.finish()
	h.expectLast("second")

	h.do(func() { h.nav.JumpTo(99) })
	h.expectLast("second")
}

func TestTOC(t *testing.T) {
	h := newHarness(t, `<h1>One</h1><p>first para</p><p>more</p><h2>Two</h2><h3>Three</h3><p>third</p>`)
	toc := TOC(h.seq)
	want := []TOCEntry{
		{Title: "One", Preview: "first para", Index: 0, Level: 1},
		{Title: "Two", Preview: "", Index: 3, Level: 2},
		{Title: "Three", Preview: "third", Index: 4, Level: 3},
	}
	if len(toc) != len(want) {
		t.Fatalf("TOC() = %+v", toc)
	}
	for i := range want {
		if toc[i] != want[i] {
			t.Errorf("TOC()[%d] = %+v, want %+v", i, toc[i], want[i])
		}
	}
}

func TestModeString(t *testing.T) {
	for m, want := range map[Mode]string{
		Idle: "idle", RestartPending: "restart-pending", Speaking: "speaking",
		Interacting: "interacting", TableNavigating: "table", Mode(42): "unknown",
	} {
		if got := m.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(m), got, want)
		}
	}
}
