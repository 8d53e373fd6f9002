package reader

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/document"
)

// IDPrefix starts every identifier the indexer assigns.
const IDPrefix = "sr-id"

// Unit is one narratable node in the reading sequence.
type Unit struct {
	Index int
	ID    string
	Kind  Kind
	Level int // heading level, 0 for other kinds
	Node  *html.Node
	End   int // one past the last unit inside Node
}

// Sequence is the fixed reading order of a document. It is built once and
// never re-indexed, even if the tree changes afterwards.
type Sequence struct {
	Units []Unit

	byNode map[*html.Node]int
}

// Build walks root depth-first and collects every recognized node in
// document order. Nodes without an id are given one. A document with no
// recognized nodes yields an empty sequence.
func Build(root *html.Node) *Sequence {
	s := &Sequence{
		byNode: make(map[*html.Node]int),
	}
	next := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		kind, level, ok := classify(n)
		idx := -1
		if ok {
			id := document.ID(n)
			if id == "" {
				id = IDPrefix + strconv.Itoa(next)
				next++
				document.SetID(n, id)
			}
			idx = len(s.Units)
			s.Units = append(s.Units, Unit{Index: idx, ID: id, Kind: kind, Level: level, Node: n})
			s.byNode[n] = idx
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if idx >= 0 {
			s.Units[idx].End = len(s.Units)
		}
	}
	if root != nil {
		walk(root)
	}
	return s
}

// Len returns the number of units.
func (s *Sequence) Len() int { return len(s.Units) }

// At returns the unit at index i.
func (s *Sequence) At(i int) (Unit, bool) {
	if i < 0 || i >= len(s.Units) {
		return Unit{}, false
	}
	return s.Units[i], true
}

// IndexOf returns the position of the unit for node n.
func (s *Sequence) IndexOf(n *html.Node) (int, bool) {
	i, ok := s.byNode[n]
	return i, ok
}
