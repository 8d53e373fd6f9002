package reader

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/document"
)

// Actions performs the side effects of interaction windows in the host.
type Actions interface {
	// Follow opens a link target in a new context.
	Follow(href string)
	// Focus moves input focus to a text control.
	Focus(n *html.Node)
	// Blur removes input focus from a text control.
	Blur(n *html.Node)
	// Activate clicks a button.
	Activate(n *html.Node)
}

// NopActions ignores every action.
type NopActions struct{}

func (NopActions) Follow(string)       {}
func (NopActions) Focus(*html.Node)    {}
func (NopActions) Blur(*html.Node)     {}
func (NopActions) Activate(*html.Node) {}

type windowKind int

const (
	noWindow windowKind = iota
	linkWindow
	textWindow
	buttonWindow
	tableWindow
)

var windowNames = [...]string{
	noWindow:     "none",
	linkWindow:   "link",
	textWindow:   "text",
	buttonWindow: "button",
	tableWindow:  "table",
}

func (k windowKind) String() string { return windowNames[k] }

// interactionFor returns the window opened after u is narrated. Submit and
// button inputs share the button window; unsupported inputs get none.
func interactionFor(u Unit) windowKind {
	switch u.Kind {
	case KindAnchor:
		return linkWindow
	case KindButton:
		return buttonWindow
	case KindTable:
		return tableWindow
	case KindInput:
		switch inputType(u.Node) {
		case "text":
			return textWindow
		case "submit", "button":
			return buttonWindow
		}
	}
	return noWindow
}

// window is the bounded period after a unit is narrated during which its
// own keys are accepted. It owns one key subscription and one timer, and
// both are released exactly once when it closes.
type window struct {
	n           *Navigator
	kind        windowKind
	unit        Unit
	prev        Mode
	unsubscribe func()
	timer       Timer
	focused     bool
	closed      bool
	then        func()
}

func (n *Navigator) openWindow(kind windowKind, idx int, then func()) {
	w := &window{
		n:    n,
		kind: kind,
		unit: n.seq.Units[idx],
		prev: n.mode,
		then: then,
	}
	n.window = w
	n.mode = Interacting
	w.unsubscribe = n.keys.Subscribe(w.key)
	w.timer = n.timers.After(n.timeout, func() { n.sched.Post(w.expire) })
	n.log.Debug("window open", "kind", kind, "unit", w.unit.ID)
	n.emit()
}

func (w *window) expire() {
	if w.closed {
		return
	}
	w.timer = nil
	w.close("timeout")
	w.n.emit()
}

func (w *window) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// close releases the window and runs its continuation.
func (w *window) close(cause string) {
	if w.closed {
		return
	}
	w.closed = true
	w.unsubscribe()
	w.stopTimer()
	n := w.n
	if n.window == w {
		n.window = nil
	}
	if n.mode == Interacting {
		n.mode = w.prev
	}
	n.log.Debug("window close", "kind", w.kind, "unit", w.unit.ID, "cause", cause)
	if then := w.then; then != nil {
		w.then = nil
		then()
	}
}

// dismiss closes the window without continuing.
func (w *window) dismiss() {
	w.then = nil
	w.close("dismissed")
}

func (w *window) key(ev *KeyEvent) {
	if w.closed {
		return
	}
	n := w.n
	defer n.emit()
	node := w.unit.Node

	switch ev.Key {
	case "Escape":
		ev.PreventDefault()
		if w.focused {
			w.focused = false
			n.actions.Blur(node)
		}
		w.close("escape")
		return
	case "Enter":
		switch w.kind {
		case linkWindow:
			if href, ok := document.Attr(node, "href"); ok {
				ev.PreventDefault()
				n.log.Debug("follow link", "href", href)
				n.actions.Follow(href)
			}
		case textWindow:
			ev.PreventDefault()
			w.stopTimer()
			if !w.focused {
				w.focused = true
				n.actions.Focus(node)
			}
		case buttonWindow:
			ev.PreventDefault()
			w.stopTimer()
			n.actions.Activate(node)
		case tableWindow:
			ev.PreventDefault()
			n.enterTable()
			w.close("enter")
		}
		return
	}

	if w.kind == textWindow && w.focused {
		w.edit(ev)
	}
}

// edit applies a key typed into the focused text control to its value.
func (w *window) edit(ev *KeyEvent) {
	if ev.Ctrl || ev.Alt {
		return
	}
	node := w.unit.Node
	value, _ := document.Attr(node, "value")
	switch {
	case ev.Key == "Backspace":
		if _, size := utf8.DecodeLastRuneInString(value); size > 0 {
			value = value[:len(value)-size]
		}
	case utf8.RuneCountInString(ev.Key) == 1:
		r, _ := utf8.DecodeRuneInString(ev.Key)
		if !unicode.IsPrint(r) {
			return
		}
		value += ev.Key
	default:
		return
	}
	ev.PreventDefault()
	document.SetAttr(node, "value", value)
}
