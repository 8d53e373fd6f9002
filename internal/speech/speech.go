// Package speech defines the speech output contract the navigator narrates
// through, and the backends that implement it.
package speech

import (
	"strings"
	"time"
)

// Outcome reports how an utterance ended.
type Outcome int

const (
	Finished Outcome = iota
	Interrupted
)

func (o Outcome) String() string {
	if o == Interrupted {
		return "interrupted"
	}
	return "finished"
}

// Utterance is one piece of text to speak at a given rate.
// Rate 1 is the backend's normal speed.
type Utterance struct {
	Text string
	Rate float64
}

// Service plays at most one utterance at a time. done is called exactly
// once per Speak, from any goroutine, when the utterance finishes or is
// interrupted by Cancel or a later Speak.
type Service interface {
	Speak(u Utterance, done func(Outcome))
	Pause()
	Resume()
	Cancel()
	Speaking() bool
	Pending() bool
	Paused() bool
}

// DefaultWPM is the speaking speed at rate 1.
const DefaultWPM = 180

// Duration estimates how long u takes to say at wpm words per minute.
func Duration(u Utterance, wpm int) time.Duration {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(u.Text))
	if words == 0 {
		words = 1
	}
	perWord := time.Duration(60.0/(float64(wpm)*rate)*1000) * time.Millisecond
	return time.Duration(words) * perWord
}

// Null is the backend used when no synthesizer is available. Nothing is
// played; Cancel still completes the pending utterance so callers that
// advance on completion keep working.
type Null struct {
	pending func(Outcome)
}

func (n *Null) Speak(u Utterance, done func(Outcome)) {
	n.Cancel()
	n.pending = done
}

func (n *Null) Cancel() {
	if done := n.pending; done != nil {
		n.pending = nil
		done(Interrupted)
	}
}

func (n *Null) Pause()         {}
func (n *Null) Resume()        {}
func (n *Null) Speaking() bool { return false }
func (n *Null) Pending() bool  { return false }
func (n *Null) Paused() bool   { return false }
