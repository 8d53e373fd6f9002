package reader

import (
	"fmt"
	"slices"
	"strings"
)

// KeyEvent is one key press. Key uses DOM key names: "Enter", "Escape",
// "Backspace", "ArrowUp", " " for space, or the typed character.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool

	prevented bool
}

// PreventDefault marks the event as consumed so the host skips its own
// handling of the key.
func (e *KeyEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether a handler consumed the event.
func (e *KeyEvent) DefaultPrevented() bool { return e.prevented }

// KeySource delivers key presses to subscribers.
type KeySource interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(*KeyEvent)) (unsubscribe func())
}

// KeyBus is a KeySource fed by the host. It is not safe for concurrent use;
// hosts dispatch through the navigator's Scheduler.
type KeyBus struct {
	subs []*subscriber
}

type subscriber struct {
	fn      func(*KeyEvent)
	removed bool
}

// NewKeyBus creates a bus with no subscribers.
func NewKeyBus() *KeyBus {
	return &KeyBus{}
}

func (b *KeyBus) Subscribe(fn func(*KeyEvent)) func() {
	s := &subscriber{fn: fn}
	b.subs = append(b.subs, s)
	return func() {
		if s.removed {
			return
		}
		s.removed = true
		b.subs = slices.DeleteFunc(b.subs, func(x *subscriber) bool { return x == s })
	}
}

// Len returns the number of subscribers.
func (b *KeyBus) Len() int { return len(b.subs) }

// Dispatch delivers ev to subscribers in registration order. Subscribers
// added during dispatch do not see ev; ones removed during it are skipped.
func (b *KeyBus) Dispatch(ev *KeyEvent) {
	for _, s := range slices.Clone(b.subs) {
		if !s.removed {
			s.fn(ev)
		}
	}
}

// Command is a user-facing control.
type Command int

const (
	CmdNone Command = iota
	CmdStart
	CmdTogglePause
	CmdSpeedUp
	CmdSlowDown
	CmdPrevious
	CmdNext
	CmdTableDown
	CmdTableUp
	CmdTableLeft
	CmdTableRight
	CmdPosition
	CmdEscape
)

var commandNames = map[Command]string{
	CmdStart:       "start",
	CmdTogglePause: "pause",
	CmdSpeedUp:     "speed-up",
	CmdSlowDown:    "slow-down",
	CmdPrevious:    "previous",
	CmdNext:        "next",
	CmdTableDown:   "table-down",
	CmdTableUp:     "table-up",
	CmdTableLeft:   "table-left",
	CmdTableRight:  "table-right",
	CmdPosition:    "position",
	CmdEscape:      "escape",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "none"
}

// ParseCommand returns the command with the given name.
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, s := range commandNames {
		if s == name {
			return c, nil
		}
	}
	if name == "" || name == "none" {
		return CmdNone, nil
	}
	return CmdNone, fmt.Errorf("unknown command %q", name)
}

// Bindings maps key names to commands.
type Bindings map[string]Command

// DefaultBindings returns the standard gesture for each command.
func DefaultBindings() Bindings {
	return Bindings{
		" ":          CmdStart,
		"p":          CmdTogglePause,
		"ArrowRight": CmdSpeedUp,
		"ArrowLeft":  CmdSlowDown,
		"ArrowUp":    CmdPrevious,
		"ArrowDown":  CmdNext,
		"j":          CmdTableDown,
		"k":          CmdTableUp,
		"h":          CmdTableLeft,
		"l":          CmdTableRight,
		";":          CmdPosition,
		"Escape":     CmdEscape,
	}
}

var namedKeys = []string{
	"Enter", "Escape", "Backspace", "Tab", "Delete",
	"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight",
	"Home", "End", "PageUp", "PageDown",
}

// canonicalKey restores the DOM spelling of a key name that may have been
// lower-cased by the config layer. "space" stands for " ".
func canonicalKey(key string) string {
	if strings.EqualFold(key, "space") {
		return " "
	}
	for _, k := range namedKeys {
		if strings.EqualFold(key, k) {
			return k
		}
	}
	return key
}

// ParseBindings applies overrides, a map of key name to command name, on top
// of the defaults. Binding a key to "none" removes it.
func ParseBindings(overrides map[string]string) (Bindings, error) {
	b := DefaultBindings()
	for key, name := range overrides {
		key = canonicalKey(key)
		c, err := ParseCommand(name)
		if err != nil {
			return nil, fmt.Errorf("binding for %q: %w", key, err)
		}
		if c == CmdNone {
			delete(b, key)
			continue
		}
		b[key] = c
	}
	return b, nil
}

// Lookup returns the command bound to key. Single letters match either case.
func (b Bindings) Lookup(key string) Command {
	if c, ok := b[key]; ok {
		return c
	}
	if len([]rune(key)) == 1 {
		if c, ok := b[strings.ToLower(key)]; ok {
			return c
		}
	}
	return CmdNone
}
