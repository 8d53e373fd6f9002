//go:build gui

package main

import (
	"context"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/narrate/internal/reader"
)

// fyneKeys maps named fyne keys to DOM key names. Printable keys arrive
// through the typed-rune callback instead.
var fyneKeys = map[fyne.KeyName]string{
	fyne.KeySpace:     " ",
	fyne.KeyReturn:    "Enter",
	fyne.KeyEnter:     "Enter",
	fyne.KeyEscape:    "Escape",
	fyne.KeyBackspace: "Backspace",
	fyne.KeyDelete:    "Delete",
	fyne.KeyTab:       "Tab",
	fyne.KeyUp:        "ArrowUp",
	fyne.KeyDown:      "ArrowDown",
	fyne.KeyLeft:      "ArrowLeft",
	fyne.KeyRight:     "ArrowRight",
	fyne.KeyHome:      "Home",
	fyne.KeyEnd:       "End",
	fyne.KeyPageUp:    "PageUp",
	fyne.KeyPageDown:  "PageDown",
}

func runHost(ctx context.Context, s *session, autostart bool) error {
	a := app.New()
	title := "narrate"
	if s.title != "" {
		title = s.title + " - narrate"
	}
	w := a.NewWindow(title)

	status := s.nav.Status()
	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter

	current := widget.NewLabel("Press space to start reading.")
	current.Wrapping = fyne.TextWrapWord
	current.TextStyle.Bold = true
	current.Alignment = fyne.TextAlignCenter

	controls := widget.NewLabel("SPACE: start  P: pause  ←/→: speed  ↑/↓: element  ENTER: interact  HJKL: table  ESC: leave table  T: contents  Q: quit")
	controls.Alignment = fyne.TextAlignCenter
	controls.Wrapping = fyne.TextWrapWord

	updateDisplay := func(st reader.Status) {
		status = st
		line := fmt.Sprintf("Unit %d/%d | %.2fx | %s", st.Position+1, st.Length, st.Rate, st.Mode)
		if st.Table != nil {
			line += fmt.Sprintf(" | Row %d/%d Col %d/%d", st.Table.Row, st.Table.Rows, st.Table.Col, st.Table.Cols)
		}
		if st.Paused {
			line += " [PAUSED]"
		}
		statusLabel.SetText(line)
		if st.Utterance != "" {
			current.SetText(st.Utterance)
		}
	}
	updateDisplay(status)

	readingContent := container.NewBorder(
		statusLabel,
		controls,
		nil, nil,
		container.NewCenter(current),
	)

	var tocPanel *container.Split
	var tocVisible bool
	mainContainer := container.NewStack(readingContent)

	if len(s.toc) > 0 {
		tocList := widget.NewList(
			func() int { return len(s.toc) },
			func() fyne.CanvasObject {
				return container.NewVBox(
					widget.NewLabel("Title"),
					widget.NewLabel("Preview"),
				)
			},
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				entry := s.toc[id]
				vbox := obj.(*fyne.Container)
				titleLabel := vbox.Objects[0].(*widget.Label)
				previewLabel := vbox.Objects[1].(*widget.Label)

				indent := strings.Repeat("  ", entry.Level-1)
				titleLabel.SetText(indent + entry.Title)
				titleLabel.TextStyle.Bold = true
				previewLabel.SetText(indent + entry.Preview)
			},
		)

		tocList.OnSelected = func(id widget.ListItemID) {
			if id < len(s.toc) {
				idx := s.toc[id].Index
				s.post(func() { s.nav.JumpTo(idx) })
				tocVisible = false
				tocPanel.Leading.Hide()
				tocPanel.Refresh()
			}
		}

		tocContainer := container.NewBorder(
			widget.NewLabel("Contents"),
			widget.NewLabel("Click to jump • T to close"),
			nil, nil,
			tocList,
		)
		tocPanel = container.NewHSplit(tocContainer, readingContent)
		tocPanel.Offset = 0.33
		tocContainer.Hide()
		mainContainer = container.NewStack(tocPanel)
	}

	s.notify = func(st reader.Status) {
		fyne.Do(func() { updateDisplay(st) })
	}

	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		if name, ok := fyneKeys[k.Name]; ok {
			s.press(reader.KeyEvent{Key: name})
		}
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		if r == ' ' {
			return // delivered as KeySpace
		}
		if !status.Focused {
			switch r {
			case 'q', 'Q':
				a.Quit()
				return
			case 't', 'T':
				if tocPanel != nil {
					tocVisible = !tocVisible
					if tocVisible {
						tocPanel.Leading.Show()
					} else {
						tocPanel.Leading.Hide()
					}
					tocPanel.Refresh()
				}
				return
			}
		}
		s.press(reader.KeyEvent{Key: string(r)})
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(mainContainer)

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- s.run(loopCtx, autostart) }()
	go func() {
		<-loopCtx.Done()
		fyne.Do(a.Quit)
	}()

	w.ShowAndRun()
	stop()
	return <-errc
}
