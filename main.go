//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/narrate/internal/reader"
)

// transcriptLimit bounds how many utterances the terminal keeps.
const transcriptLimit = 200

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00"))

	spokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	tableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF"))

	tocCursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

type statusMsg reader.Status

// keyMap holds the terminal's own keys plus display-only entries for the
// navigator's bindings, so help reflects any configured overrides.
type keyMap struct {
	Quit     key.Binding
	TOC      key.Binding
	Help     key.Binding
	commands map[reader.Command]key.Binding
}

var keyNames = map[string]string{
	" ":          "space",
	"ArrowUp":    "↑",
	"ArrowDown":  "↓",
	"ArrowLeft":  "←",
	"ArrowRight": "→",
	"Escape":     "esc",
	"Enter":      "enter",
	"Backspace":  "backspace",
}

func displayKey(k string) string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return strings.ToLower(k)
}

func newKeyMap(b reader.Bindings) keyMap {
	byCmd := map[reader.Command][]string{}
	for k, c := range b {
		name := displayKey(k)
		if !contains(byCmd[c], name) {
			byCmd[c] = append(byCmd[c], name)
		}
	}
	km := keyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		TOC:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),

		commands: map[reader.Command]key.Binding{},
	}
	for c, names := range byCmd {
		sort.Strings(names)
		km.commands[c] = key.NewBinding(key.WithKeys(names...), key.WithHelp(strings.Join(names, "/"), c.String()))
	}
	return km
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (k keyMap) bindings(cmds ...reader.Command) []key.Binding {
	var out []key.Binding
	for _, c := range cmds {
		if b, ok := k.commands[c]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (k keyMap) ShortHelp() []key.Binding {
	return append(k.bindings(reader.CmdStart, reader.CmdTogglePause, reader.CmdPrevious, reader.CmdNext), k.Help, k.Quit)
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.bindings(reader.CmdStart, reader.CmdTogglePause, reader.CmdSpeedUp, reader.CmdSlowDown),
		k.bindings(reader.CmdPrevious, reader.CmdNext, reader.CmdEscape),
		k.bindings(reader.CmdTableDown, reader.CmdTableUp, reader.CmdTableLeft, reader.CmdTableRight, reader.CmdPosition),
		{k.TOC, k.Help, k.Quit},
	}
}

type model struct {
	s          *session
	status     reader.Status
	transcript []string
	keys       keyMap
	help       help.Model
	tocVisible bool
	tocCursor  int
	quitting   bool
	width      int
	height     int
}

func newModel(s *session) model {
	return model{
		s:      s,
		status: s.nav.Status(),
		keys:   newKeyMap(s.bindings),
		help:   help.New(),
		width:  80,
		height: 24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case statusMsg:
		prev := m.status.Said
		m.status = reader.Status(msg)
		if u := m.status.Utterance; u != "" && m.status.Said != prev {
			m.transcript = append(m.transcript, u)
			if len(m.transcript) > transcriptLimit {
				m.transcript = m.transcript[len(m.transcript)-transcriptLimit:]
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.tocVisible {
			return m.updateTOC(msg)
		}
		// a focused text field gets every key
		if !m.status.Focused {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.quitting = true
				return m, tea.Quit
			case key.Matches(msg, m.keys.TOC):
				if len(m.s.toc) > 0 {
					m.tocVisible = true
				}
				return m, nil
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			}
		} else if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if ev, ok := translateKey(msg); ok {
			m.s.press(ev)
		}
	}

	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.tocCursor > 0 {
			m.tocCursor--
		}
	case "down", "j":
		if m.tocCursor < len(m.s.toc)-1 {
			m.tocCursor++
		}
	case "enter":
		idx := m.s.toc[m.tocCursor].Index
		m.s.post(func() { m.s.nav.JumpTo(idx) })
		m.tocVisible = false
	case "esc", "t":
		m.tocVisible = false
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// translateKey turns a terminal key into the DOM-style event the navigator
// understands.
func translateKey(msg tea.KeyMsg) (reader.KeyEvent, bool) {
	ev := reader.KeyEvent{Alt: msg.Alt}
	switch msg.Type {
	case tea.KeyRunes:
		ev.Key = string(msg.Runes)
	case tea.KeySpace:
		ev.Key = " "
	case tea.KeyEnter:
		ev.Key = "Enter"
	case tea.KeyEsc:
		ev.Key = "Escape"
	case tea.KeyBackspace:
		ev.Key = "Backspace"
	case tea.KeyDelete:
		ev.Key = "Delete"
	case tea.KeyTab:
		ev.Key = "Tab"
	case tea.KeyShiftTab:
		ev.Key, ev.Shift = "Tab", true
	case tea.KeyUp:
		ev.Key = "ArrowUp"
	case tea.KeyDown:
		ev.Key = "ArrowDown"
	case tea.KeyLeft:
		ev.Key = "ArrowLeft"
	case tea.KeyRight:
		ev.Key = "ArrowRight"
	case tea.KeyHome:
		ev.Key = "Home"
	case tea.KeyEnd:
		ev.Key = "End"
	case tea.KeyPgUp:
		ev.Key = "PageUp"
	case tea.KeyPgDown:
		ev.Key = "PageDown"
	default:
		rest, ok := strings.CutPrefix(msg.String(), "ctrl+")
		if !ok {
			return ev, false
		}
		ev.Key, ev.Ctrl = rest, true
	}
	return ev, true
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	if m.s.title != "" {
		sb.WriteString(titleStyle.Render(m.s.title))
		sb.WriteString("\n")
	}
	sb.WriteString(m.statusLine())
	sb.WriteString("\n\n")

	helpView := m.help.View(m.keys)
	used := lipgloss.Height(sb.String()) + lipgloss.Height(helpView)
	avail := m.height - used
	if avail < 1 {
		avail = 1
	}

	var body string
	if m.tocVisible {
		body = m.tocView(avail)
	} else {
		body = m.transcriptView(avail)
	}
	sb.WriteString(lipgloss.NewStyle().Height(avail).MaxHeight(avail).Render(body))
	sb.WriteString("\n")
	sb.WriteString(helpView)
	return sb.String()
}

func (m model) statusLine() string {
	st := m.status
	current := st.Position + 1
	if current < 0 {
		current = 0
	}
	line := fmt.Sprintf("Unit %d/%d | %.2fx | %s", current, st.Length, st.Rate, st.Mode)
	if st.Table != nil {
		line += tableStyle.Render(fmt.Sprintf(" | Row %d/%d Col %d/%d", st.Table.Row, st.Table.Rows, st.Table.Col, st.Table.Cols))
	}
	if st.Focused {
		line += " | typing"
	}
	if st.Paused {
		line += pausedStyle.Render(" [PAUSED]")
	}
	return statusStyle.Render(line)
}

func (m model) transcriptView(lines int) string {
	if len(m.transcript) == 0 {
		if m.status.Length == 0 {
			return spokenStyle.Render("No readable elements in this document.")
		}
		return spokenStyle.Render("Press space to start reading.")
	}
	wrap := lipgloss.NewStyle().Width(m.width - 2)
	var rendered []string
	for i := len(m.transcript) - 1; i >= 0 && len(rendered) < lines; i-- {
		style := spokenStyle
		if i == len(m.transcript)-1 {
			style = currentStyle
		}
		rendered = append(rendered, wrap.Render(style.Render(m.transcript[i])))
	}
	for i, j := 0, len(rendered)-1; i < j; i, j = i+1, j-1 {
		rendered[i], rendered[j] = rendered[j], rendered[i]
	}
	return strings.Join(rendered, "\n")
}

func (m model) tocView(lines int) string {
	start := 0
	if m.tocCursor >= lines {
		start = m.tocCursor - lines + 1
	}
	var sb strings.Builder
	for i := start; i < len(m.s.toc) && i < start+lines; i++ {
		e := m.s.toc[i]
		indent := strings.Repeat("  ", e.Level-1)
		line := indent + e.Title
		if e.Preview != "" {
			line += spokenStyle.Render("  " + e.Preview)
		}
		if i == m.tocCursor {
			sb.WriteString(tocCursorStyle.Render("> "))
		} else {
			sb.WriteString("  ")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func runHost(ctx context.Context, s *session, autostart bool) error {
	p := tea.NewProgram(newModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
	s.notify = func(st reader.Status) { p.Send(statusMsg(st)) }

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- s.run(loopCtx, autostart) }()

	_, err := p.Run()
	stop()
	if runErr := <-errc; err == nil {
		err = runErr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
