package reader

import "github.com/metcalfc/narrate/internal/document"

// TOCEntry is one heading of the document with a preview of what follows.
type TOCEntry struct {
	Title   string
	Preview string
	Index   int // position of the heading in the sequence
	Level   int
}

const previewLimit = 80

// TOC lists the headings of seq in reading order. The preview is the text
// of the first paragraph after each heading.
func TOC(seq *Sequence) []TOCEntry {
	var toc []TOCEntry
	for i, u := range seq.Units {
		if u.Kind != KindHeading {
			continue
		}
		e := TOCEntry{Title: document.Text(u.Node), Index: i, Level: u.Level}
		for _, next := range seq.Units[i+1:] {
			if next.Kind == KindHeading {
				break
			}
			if next.Kind == KindParagraph {
				e.Preview = truncate(document.Text(next.Node), previewLimit)
				break
			}
		}
		toc = append(toc, e)
	}
	return toc
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// JumpTo stops whatever is playing and reads from the unit at idx.
func (n *Navigator) JumpTo(idx int) {
	if idx < 0 || idx >= n.seq.Len() {
		return
	}
	defer n.emit()
	n.halt()
	n.tableHit = false
	n.restart = false
	n.mode = Speaking
	n.pos = idx
	n.log.Debug("jump", "position", idx)
	n.speakCurrent()
}
