//go:build !gui

package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/narrate/internal/reader"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name   string
		msg    tea.KeyMsg
		want   reader.KeyEvent
		wantOK bool
	}{
		{"rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, reader.KeyEvent{Key: "j"}, true},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p"), Alt: true}, reader.KeyEvent{Key: "p", Alt: true}, true},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}, reader.KeyEvent{Key: " "}, true},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, reader.KeyEvent{Key: "Enter"}, true},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, reader.KeyEvent{Key: "Escape"}, true},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, reader.KeyEvent{Key: "Backspace"}, true},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, reader.KeyEvent{Key: "ArrowUp"}, true},
		{"down", tea.KeyMsg{Type: tea.KeyDown}, reader.KeyEvent{Key: "ArrowDown"}, true},
		{"left", tea.KeyMsg{Type: tea.KeyLeft}, reader.KeyEvent{Key: "ArrowLeft"}, true},
		{"right", tea.KeyMsg{Type: tea.KeyRight}, reader.KeyEvent{Key: "ArrowRight"}, true},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, reader.KeyEvent{Key: "Tab", Shift: true}, true},
		{"ctrl chord", tea.KeyMsg{Type: tea.KeyCtrlA}, reader.KeyEvent{Key: "a", Ctrl: true}, true},
		{"unmapped", tea.KeyMsg{Type: tea.KeyF5}, reader.KeyEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateKey(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("translateKey() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got.Key != tt.want.Key || got.Ctrl != tt.want.Ctrl || got.Alt != tt.want.Alt || got.Shift != tt.want.Shift) {
				t.Errorf("translateKey() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestKeyMapHelp(t *testing.T) {
	b, err := reader.ParseBindings(map[string]string{"n": "next", "arrowdown": "none"})
	if err != nil {
		t.Fatal(err)
	}
	km := newKeyMap(b)
	next, ok := km.commands[reader.CmdNext]
	if !ok {
		t.Fatal("no help entry for next")
	}
	if h := next.Help(); h.Key != "n" || h.Desc != "next" {
		t.Errorf("next help = %+v", h)
	}
	if h := km.commands[reader.CmdStart].Help(); h.Key != "space" {
		t.Errorf("start help key = %q", h.Key)
	}
	if got := len(km.FullHelp()); got != 4 {
		t.Errorf("FullHelp columns = %d", got)
	}
}

func TestModelKeys(t *testing.T) {
	s := newTestSession(t, `<h1>One</h1><p>a</p><h2>Two</h2><p>b</p>`, "")
	m := newModel(s)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	if cmd != nil {
		t.Error("space should not quit")
	}
	m = next.(model)
	s.loop.Drain()
	if s.nav.Mode() != reader.Speaking {
		t.Fatalf("mode = %v, want speaking", s.nav.Mode())
	}

	// the table of contents jumps to the chosen heading
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	m = next.(model)
	if !m.tocVisible {
		t.Fatal("t should open the contents")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.(model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	s.loop.Drain()
	if m.tocVisible || s.nav.Position() != 2 {
		t.Errorf("after jump: visible=%v pos=%d", m.tocVisible, s.nav.Position())
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestModelFocusedInputKeepsKeys(t *testing.T) {
	s := newTestSession(t, `<input id="who">`, "")
	m := newModel(s)
	m.status.Focused = true

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("q should be typed, not quit, while an input is focused")
	}
	if next.(model).quitting {
		t.Error("model quitting")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("ctrl+c should always quit")
	}
}

func TestModelTranscript(t *testing.T) {
	s := newTestSession(t, `<p>a</p>`, "")
	var m tea.Model = newModel(s)
	updates := []reader.Status{
		{Utterance: "one", Said: 1},
		{Utterance: "one", Said: 1, Paused: true}, // same utterance, new state
		{Utterance: "one", Said: 2},               // the phrase said again
		{Utterance: "two", Said: 3},
		{Utterance: "", Said: 4},
	}
	for _, st := range updates {
		m, _ = m.Update(statusMsg(st))
	}
	got := m.(model).transcript
	if len(got) != 3 || got[0] != "one" || got[1] != "one" || got[2] != "two" {
		t.Errorf("transcript = %q", got)
	}

	for i := 0; i < transcriptLimit+10; i++ {
		m, _ = m.Update(statusMsg(reader.Status{Utterance: strings.Repeat("x", i%2+1), Said: 5 + i}))
	}
	if n := len(m.(model).transcript); n != transcriptLimit {
		t.Errorf("transcript length = %d, want %d", n, transcriptLimit)
	}
}

func TestModelView(t *testing.T) {
	s := newTestSession(t, `<title>Doc</title><table><tr><td>x</td></tr></table>`, "")
	m := newModel(s)
	m.status = reader.Status{
		Mode:      reader.TableNavigating,
		Position:  2,
		Length:    3,
		Rate:      1,
		Paused:    true,
		Utterance: "x",
		Table:     &reader.TablePosition{Row: 1, Col: 1, Rows: 1, Cols: 1},
	}
	m.transcript = []string{"x"}

	view := m.View()
	for _, want := range []string{"Doc", "Unit 3/3", "table", "Row 1/1 Col 1/1", "[PAUSED]", "x"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m.quitting = true
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
}
