package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/config"
	"github.com/metcalfc/narrate/internal/document"
	"github.com/metcalfc/narrate/internal/reader"
	"github.com/metcalfc/narrate/internal/speech"
)

// newLogger builds the run logger. With no log file and no fallback writer
// logs are discarded, since the hosts own the terminal or window.
func newLogger(cfg config.LogConfig, fallback io.Writer) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	w := fallback
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	var h slog.Handler = slog.DiscardHandler
	if w != nil {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h).With("run_id", uuid.New().String()), closeFn, nil
}

// newSpeech picks the backend named in cfg. A command backend whose
// synthesizer is missing falls back to silence.
func newSpeech(cfg config.SpeechConfig, logger *slog.Logger) speech.Service {
	switch cfg.Backend {
	case config.BackendCommand:
		c, err := speech.NewCommand(cfg.Command, cfg.WPM, logger)
		if err == nil {
			return c
		}
		logger.Warn("speech command unavailable, continuing without audio", "error", err)
	case config.BackendSimulated:
		return speech.NewSimulated(cfg.WPM)
	}
	return &speech.Null{}
}

// hostActions carries out interaction windows outside the document: links
// are handed to the configured opener, everything else is logged.
type hostActions struct {
	log  *slog.Logger
	open string
}

func (a *hostActions) Follow(href string) {
	a.log.Info("follow link", "href", href)
	if a.open == "" {
		return
	}
	args := strings.Fields(a.open)
	cmd := exec.Command(args[0], append(args[1:], href)...)
	if err := cmd.Start(); err != nil {
		a.log.Warn("opening link failed", "href", href, "error", err)
		return
	}
	go cmd.Wait()
}

func (a *hostActions) Focus(n *html.Node) {
	a.log.Info("focus", "id", document.ID(n))
}

func (a *hostActions) Blur(n *html.Node) {
	v, _ := document.Attr(n, "value")
	a.log.Info("blur", "id", document.ID(n), "value", v)
}

func (a *hostActions) Activate(n *html.Node) {
	a.log.Info("activate", "id", document.ID(n), "label", document.Label(n))
}

// session owns a navigator and the loop it runs on. Everything that touches
// the navigator goes through post.
type session struct {
	cfg      *config.Manager
	log      *slog.Logger
	loop     *reader.Loop
	keys     *reader.KeyBus
	nav      *reader.Navigator
	bindings reader.Bindings
	title    string
	toc      []reader.TOCEntry

	// notify is set by the host before run.
	notify func(reader.Status)
}

func newSession(mgr *config.Manager, logger *slog.Logger, root *html.Node) (*session, error) {
	cfg := mgr.Get()
	bindings, err := reader.ParseBindings(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}

	s := &session{
		cfg:      mgr,
		log:      logger,
		loop:     reader.NewLoop(),
		keys:     reader.NewKeyBus(),
		bindings: bindings,
	}
	seq := reader.Build(root)
	s.nav = reader.New(seq, reader.Options{
		Speech:    newSpeech(cfg.Speech, logger),
		Keys:      s.keys,
		Scheduler: s.loop,
		Actions:   &hostActions{log: logger, open: cfg.Links.Open},
		Logger:    logger,
		Timeout:   cfg.Interaction.Timeout,
		Rate:      cfg.Speech.Rate,
		Bindings:  bindings,
		Notify: func(st reader.Status) {
			if s.notify != nil {
				s.notify(st)
			}
		},
	})
	s.toc = reader.TOC(seq)
	for _, u := range seq.Units {
		if u.Kind == reader.KindTitle {
			s.title = document.Text(u.Node)
			break
		}
	}

	mgr.OnChange(func(c *config.Config) {
		s.post(func() {
			s.nav.SetRate(c.Speech.Rate)
			s.nav.SetTimeout(c.Interaction.Timeout)
			logger.Info("config reloaded", "rate", s.nav.Rate(), "timeout", c.Interaction.Timeout)
		})
	})
	return s, nil
}

// post runs fn on the navigator's loop.
func (s *session) post(fn func()) { s.loop.Post(fn) }

// press delivers a key to the navigator and any open interaction window.
func (s *session) press(ev reader.KeyEvent) {
	s.post(func() { s.keys.Dispatch(&ev) })
}

// run drives the loop until ctx ends, then stops narration.
func (s *session) run(ctx context.Context, autostart bool) error {
	s.cfg.WatchConfig()
	if autostart {
		s.post(s.nav.Start)
	}
	err := s.loop.Run(ctx)
	s.nav.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
