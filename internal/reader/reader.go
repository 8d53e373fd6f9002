// Package reader provides the Reading Navigator: it turns a document into a
// fixed reading sequence, narrates it unit by unit, opens interaction windows
// after interactive units, and navigates tables cell by cell.
//
// A Navigator is single-threaded. Its methods must be called from the
// goroutine running its Scheduler; speech completions, timers and key
// presses are funneled back onto that goroutine.
package reader

import (
	"log/slog"
	"math"
	"time"

	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/document"
	"github.com/metcalfc/narrate/internal/speech"
)

// Mode is the navigator's playback state.
type Mode int

const (
	Idle Mode = iota
	RestartPending
	Speaking
	Interacting
	TableNavigating
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case RestartPending:
		return "restart-pending"
	case Speaking:
		return "speaking"
	case Interacting:
		return "interacting"
	case TableNavigating:
		return "table"
	}
	return "unknown"
}

const (
	DefaultTimeout = 1500 * time.Millisecond
	MinRate        = 0.25
	MaxRate        = 4.0

	// HighlightColor marks the unit being narrated.
	HighlightColor = "yellow"
)

// ClampRate limits a speech rate to [MinRate, MaxRate].
func ClampRate(r float64) float64 {
	if math.IsNaN(r) || r <= 0 {
		return 1
	}
	return math.Min(MaxRate, math.Max(MinRate, r))
}

// Options configures a Navigator. Scheduler is required; the rest have
// working defaults.
type Options struct {
	Speech    speech.Service
	Keys      KeySource
	Timers    Timers
	Scheduler Scheduler
	Actions   Actions
	Logger    *slog.Logger
	Timeout   time.Duration
	Rate      float64
	Bindings  Bindings
	// Notify, if set, receives the status after every change.
	Notify func(Status)
}

// Status is a snapshot of the navigator for display. Said counts the
// utterances started so far, so a repeated phrase still shows as new.
type Status struct {
	Mode      Mode
	Position  int
	Length    int
	Rate      float64
	Paused    bool
	Utterance string
	Said      int
	UnitID    string
	Table     *TablePosition
	Focused   bool
}

// Navigator is the playback controller.
type Navigator struct {
	seq      *Sequence
	speech   speech.Service
	keys     KeySource
	timers   Timers
	sched    Scheduler
	actions  Actions
	log      *slog.Logger
	notify   func(Status)
	bindings Bindings
	timeout  time.Duration
	rate     float64

	pos      int
	mode     Mode
	restart  bool
	skip     bool
	tableHit bool
	table    *TableContext
	tables   *tableRegistry
	inflight *utterance
	window   *window
	lit      *highlight
	said     string
	saidN    int

	unsubscribe func()
}

// utterance is one Speak call. A detached utterance was superseded and its
// completion is ignored.
type utterance struct {
	text     string
	then     func()
	detached bool
}

type highlight struct {
	node *html.Node
	prev string
}

// New creates a navigator over seq and subscribes it to opts.Keys.
func New(seq *Sequence, opts Options) *Navigator {
	if opts.Scheduler == nil {
		panic("reader: Options.Scheduler is required")
	}
	if seq == nil {
		seq = &Sequence{}
	}
	if opts.Speech == nil {
		opts.Speech = &speech.Null{}
	}
	if opts.Keys == nil {
		opts.Keys = NewKeyBus()
	}
	if opts.Timers == nil {
		opts.Timers = Clock{}
	}
	if opts.Actions == nil {
		opts.Actions = NopActions{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Bindings == nil {
		opts.Bindings = DefaultBindings()
	}

	n := &Navigator{
		seq:      seq,
		speech:   opts.Speech,
		keys:     opts.Keys,
		timers:   opts.Timers,
		sched:    opts.Scheduler,
		actions:  opts.Actions,
		log:      opts.Logger,
		notify:   opts.Notify,
		bindings: opts.Bindings,
		timeout:  opts.Timeout,
		rate:     ClampRate(opts.Rate),
		restart:  true,
		tables:   newTableRegistry(),
	}
	n.unsubscribe = n.keys.Subscribe(n.handleKey)
	return n
}

// Close stops narration and detaches the navigator from its key source.
func (n *Navigator) Close() {
	n.halt()
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
}

// Sequence returns the reading sequence.
func (n *Navigator) Sequence() *Sequence { return n.seq }

// Position returns the current cursor, in [-1, Len].
func (n *Navigator) Position() int { return n.pos }

// Mode returns the playback state.
func (n *Navigator) Mode() Mode { return n.mode }

// Rate returns the speech rate.
func (n *Navigator) Rate() float64 { return n.rate }

// Table returns the most recently reached table, or nil.
func (n *Navigator) Table() *TableContext { return n.table }

// Status returns a snapshot of the navigator.
func (n *Navigator) Status() Status {
	s := Status{
		Mode:      n.mode,
		Position:  n.pos,
		Length:    n.seq.Len(),
		Rate:      n.rate,
		Paused:    n.speech.Paused(),
		Utterance: n.said,
		Said:      n.saidN,
		Focused:   n.window != nil && n.window.focused,
	}
	if u, ok := n.seq.At(n.pos); ok {
		s.UnitID = u.ID
	}
	if n.inTable() {
		t := n.table
		s.Table = &TablePosition{Row: t.Row, Col: t.Col, Rows: t.Rows, Cols: t.Cols}
	}
	return s
}

// inTable reports whether table navigation is active, possibly with a cell's
// interaction window open on top of it.
func (n *Navigator) inTable() bool {
	return n.mode == TableNavigating || (n.window != nil && n.window.prev == TableNavigating)
}

func (n *Navigator) emit() {
	if n.notify != nil {
		n.notify(n.Status())
	}
}

// say speaks text as the one active utterance. Any utterance still in
// flight is detached first so its continuation never runs.
func (n *Navigator) say(text string, then func()) {
	if prev := n.inflight; prev != nil {
		prev.detached = true
		n.inflight = nil
	}
	n.speech.Cancel()

	u := &utterance{text: text, then: then}
	n.inflight = u
	n.said = text
	n.saidN++
	n.log.Debug("speak", "position", n.pos, "mode", n.mode, "text", text)
	n.speech.Speak(speech.Utterance{Text: text, Rate: n.rate}, func(speech.Outcome) {
		n.sched.Post(func() { n.finished(u) })
	})
	n.emit()
}

func (n *Navigator) finished(u *utterance) {
	if u.detached {
		return
	}
	n.inflight = nil
	if u.then != nil {
		u.then()
	}
	n.emit()
}

// speakCurrent narrates the unit at the cursor, or ends the document.
func (n *Navigator) speakCurrent() {
	if n.pos >= n.seq.Len() {
		n.endOfDocument()
		return
	}
	if n.pos < 0 {
		n.pos = 0
	}
	idx := n.pos
	u := n.seq.Units[idx]
	if u.Kind == KindTable {
		n.visitTable(idx)
	}
	n.skip = false
	n.mode = Speaking
	n.say(Render(u, n.table), func() { n.unitSpoken(idx) })
	n.setHighlight(u.Node)
}

// unitSpoken runs when narration of a unit ends: it opens the unit's
// interaction window unless the narration was cancelled.
func (n *Navigator) unitSpoken(idx int) {
	if !n.skip && n.mode != TableNavigating {
		if kind := interactionFor(n.seq.Units[idx]); kind != noWindow {
			n.openWindow(kind, idx, n.afterUnit)
			return
		}
	}
	n.afterUnit()
}

// afterUnit advances past the unit just handled, skipping over the body of
// a table whose summary was just read.
func (n *Navigator) afterUnit() {
	n.skip = false
	n.restoreHighlight()
	if n.mode == TableNavigating {
		return
	}
	n.pos++
	if n.pos < n.seq.Len() && n.tableHit {
		n.tableHit = false
		n.pos = n.table.After
	}
	n.speakCurrent()
}

func (n *Navigator) endOfDocument() {
	n.tableHit = false
	n.pos = 0
	n.restart = true
	n.mode = RestartPending
	n.say(endOfDocumentPhrase, nil)
}

// cancel interrupts the utterance in flight and marks the unit so no
// interaction window opens for it. The interrupted utterance's
// continuation still runs.
func (n *Navigator) cancel() {
	n.skip = true
	n.restoreHighlight()
	n.speech.Cancel()
}

// halt stops everything without running any continuation.
func (n *Navigator) halt() {
	if u := n.inflight; u != nil {
		u.detached = true
		n.inflight = nil
	}
	n.skip = true
	n.speech.Cancel()
	if w := n.window; w != nil {
		w.dismiss()
	}
	n.restoreHighlight()
}

// step makes the pending cursor change take effect: the current utterance
// or interaction window is cut short and its continuation advances from
// the new position. With nothing to cut short it advances directly; a
// pending restart then reads from the top.
func (n *Navigator) step() {
	n.cancel()
	switch {
	case n.inflight != nil:
	case n.window != nil:
		n.window.close("navigate")
	default:
		if n.restart {
			n.restart = false
			n.tableHit = false
			n.pos = -1
		}
		n.afterUnit()
	}
}

func (n *Navigator) setHighlight(node *html.Node) {
	n.restoreHighlight()
	n.lit = &highlight{node: node, prev: document.Style(node, document.HighlightProperty)}
	document.SetStyle(node, document.HighlightProperty, HighlightColor)
}

func (n *Navigator) restoreHighlight() {
	if n.lit == nil {
		return
	}
	document.SetStyle(n.lit.node, document.HighlightProperty, n.lit.prev)
	n.lit = nil
}

// Start begins reading. After the end of the document, on first use, or
// during table navigation, it reads from the top. Otherwise it only moves
// the cursor before the start, so reading in progress picks up from the
// first unit.
func (n *Navigator) Start() {
	defer n.emit()
	if n.seq.Len() == 0 {
		n.say(noContentPhrase, nil)
		return
	}
	if n.inTable() {
		// halt drops every continuation, so nothing would pick up the cursor
		n.halt()
		n.mode = Idle
		n.tableHit = false
		n.restart = true
	}
	if n.restart {
		n.pos = 0
		n.restart = false
		n.cancel()
		n.speakCurrent()
		return
	}
	n.pos = -1
	n.tableHit = false
	n.cancel()
}

// Pause pauses speech.
func (n *Navigator) Pause() {
	n.speech.Pause()
	n.emit()
}

// Resume resumes paused speech.
func (n *Navigator) Resume() {
	n.speech.Resume()
	n.emit()
}

// TogglePause resumes if paused, pauses if speaking, and otherwise starts.
func (n *Navigator) TogglePause() {
	switch {
	case n.speech.Paused():
		n.Resume()
	case n.speech.Speaking() || n.speech.Pending():
		n.Pause()
	default:
		n.Start()
	}
}

// SpeedUp raises the rate by 10%, from the next utterance on.
func (n *Navigator) SpeedUp() { n.SetRate(n.rate * 1.1) }

// SlowDown lowers the rate by 10%, from the next utterance on.
func (n *Navigator) SlowDown() { n.SetRate(n.rate * 0.9) }

// SetRate sets the speech rate, clamped to [MinRate, MaxRate].
func (n *Navigator) SetRate(r float64) {
	n.rate = ClampRate(r)
	n.emit()
}

// SetTimeout changes the length of interaction windows opened from now on.
func (n *Navigator) SetTimeout(d time.Duration) {
	if d > 0 {
		n.timeout = d
	}
}

// Next moves to the following unit. A table whose summary is being read is
// skipped as a whole. At the last unit it announces the end of the document.
func (n *Navigator) Next() {
	if n.inTable() {
		return
	}
	defer n.emit()
	if n.pos+1 >= n.seq.Len() {
		n.halt()
		n.endOfDocument()
		return
	}
	if n.tableHit {
		n.tableHit = false
		if n.table.After >= n.seq.Len() {
			n.halt()
			n.endOfDocument()
			return
		}
		n.pos = n.table.After - 1
	}
	n.step()
}

// Previous moves to the preceding unit. The cursor runs one ahead of the
// unit being spoken, so it steps back two; around tables it steps past the
// table body instead of into it.
func (n *Navigator) Previous() {
	if n.inTable() {
		return
	}
	defer n.emit()
	if n.pos <= 0 {
		n.pos = -1
		n.step()
		return
	}
	if t, ok := n.tables.tableBefore(n.pos); ok {
		n.pos = t - 1
		n.tableHit = false
		n.step()
		return
	}
	if cur := n.tables.current; cur >= 0 {
		switch n.pos {
		case cur:
			n.pos -= 2
			n.tableHit = false
			n.step()
			return
		case cur + 1:
			n.pos = max(n.pos-3, -1)
			n.tableHit = false
			n.step()
			return
		}
	}
	if n.restart {
		n.restart = false
		n.cancel()
		n.speakCurrent()
		return
	}
	n.pos -= 2
	n.step()
}

// Do runs a command.
func (n *Navigator) Do(c Command) {
	switch c {
	case CmdStart:
		n.Start()
	case CmdTogglePause:
		n.TogglePause()
	case CmdSpeedUp:
		n.SpeedUp()
	case CmdSlowDown:
		n.SlowDown()
	case CmdPrevious:
		n.Previous()
	case CmdNext:
		n.Next()
	case CmdTableDown:
		n.MoveDown()
	case CmdTableUp:
		n.MoveUp()
	case CmdTableLeft:
		n.MoveLeft()
	case CmdTableRight:
		n.MoveRight()
	case CmdPosition:
		n.ReadPosition()
	case CmdEscape:
		n.EscapeTable()
	}
}

// handleKey maps global gestures to commands. Nothing is handled while an
// interaction window is open; speed and linear moves are off inside tables
// and table moves are off outside them.
func (n *Navigator) handleKey(ev *KeyEvent) {
	if n.mode == Interacting || n.window != nil || ev.Ctrl || ev.Alt {
		return
	}
	c := n.bindings.Lookup(ev.Key)
	table := n.mode == TableNavigating
	switch c {
	case CmdNone:
		return
	case CmdSpeedUp, CmdSlowDown, CmdPrevious, CmdNext:
		if table {
			return
		}
	case CmdTableDown, CmdTableUp, CmdTableLeft, CmdTableRight, CmdPosition:
		if !table {
			return
		}
	}
	if c != CmdTogglePause && c != CmdEscape {
		ev.PreventDefault()
	}
	n.Do(c)
}
