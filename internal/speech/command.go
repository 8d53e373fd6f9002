package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// Command speaks through an external synthesizer such as espeak-ng, one
// process per utterance. Cancel kills the process.
type Command struct {
	Binary string
	WPM    int
	Logger *slog.Logger

	mu     sync.Mutex
	cur    *process
	paused bool
}

type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   func(Outcome)
	killed bool
	ended  bool
}

// NewCommand returns a backend running binary, or an error when it cannot
// be found on PATH.
func NewCommand(binary string, wpm int, logger *slog.Logger) (*Command, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("speech command %q: %w", binary, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	return &Command{Binary: path, WPM: wpm, Logger: logger}, nil
}

// Args returns the synthesizer arguments for u.
func (c *Command) Args(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	return []string{"-s", strconv.Itoa(int(float64(c.WPM) * rate)), "--", u.Text}
}

func (c *Command) Speak(u Utterance, done func(Outcome)) {
	c.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &process{
		cmd:    exec.CommandContext(ctx, c.Binary, c.Args(u)...),
		cancel: cancel,
		done:   done,
	}

	c.mu.Lock()
	c.cur = p
	c.paused = false
	c.mu.Unlock()

	if err := p.cmd.Start(); err != nil {
		c.Logger.Warn("speech command failed to start", "error", err)
		c.finish(p, Finished)
		return
	}

	go func() {
		err := p.cmd.Wait()
		c.mu.Lock()
		killed := p.killed
		c.mu.Unlock()
		if err != nil && !killed {
			c.Logger.Warn("speech command failed", "error", err)
		}
		if killed {
			c.finish(p, Interrupted)
			return
		}
		c.finish(p, Finished)
	}()
}

func (c *Command) finish(p *process, o Outcome) {
	c.mu.Lock()
	if p.ended {
		c.mu.Unlock()
		return
	}
	p.ended = true
	if c.cur == p {
		c.cur = nil
		c.paused = false
	}
	c.mu.Unlock()
	p.cancel()
	p.done(o)
}

func (c *Command) Cancel() {
	c.mu.Lock()
	p := c.cur
	if p == nil {
		c.mu.Unlock()
		return
	}
	p.killed = true
	if c.paused {
		resumeProcess(p.cmd)
	}
	c.mu.Unlock()
	// CommandContext kills the process; Wait reports the interruption.
	p.cancel()
}

func (c *Command) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.paused {
		return
	}
	if pauseProcess(c.cur.cmd) {
		c.paused = true
	}
}

func (c *Command) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || !c.paused {
		return
	}
	resumeProcess(c.cur.cmd)
	c.paused = false
}

func (c *Command) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

func (c *Command) Pending() bool { return false }

func (c *Command) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
