package reader

import (
	"fmt"
	"slices"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/metcalfc/narrate/internal/document"
)

// TableContext describes the table most recently reached by the reader and,
// while navigating it, the 1-based cell cursor.
type TableContext struct {
	Node    *html.Node
	Index   int // position of the table unit
	After   int // position of the first unit following the table
	Rows    int
	Cols    int
	Headers []string
	Row     int
	Col     int

	rows [][]*html.Node
}

// ReadTable measures a table. Rows are the tr children of the first tbody,
// or of the table itself when it has none; the column count is the number
// of td cells in the first row. Headers come from the th cells of thead.
func ReadTable(table *html.Node) *TableContext {
	t := &TableContext{Node: table, Index: -1, After: -1, Row: 1, Col: 1}
	body := table
	if bodies := document.Children(table, atom.Tbody); len(bodies) > 0 {
		body = bodies[0]
	}
	for _, tr := range document.Children(body, atom.Tr) {
		t.rows = append(t.rows, document.Children(tr, atom.Td))
	}
	t.Rows = len(t.rows)
	if t.Rows > 0 {
		t.Cols = len(t.rows[0])
	}
	if heads := document.Children(table, atom.Thead); len(heads) > 0 {
		for _, th := range document.FindAll(heads[0], atom.Th) {
			t.Headers = append(t.Headers, document.Text(th))
		}
	}
	return t
}

// Cell returns the td at the 1-based row and column, or nil.
func (t *TableContext) Cell(row, col int) *html.Node {
	if row < 1 || row > len(t.rows) {
		return nil
	}
	cells := t.rows[row-1]
	if col < 1 || col > len(cells) {
		return nil
	}
	return cells[col-1]
}

// header returns the column header for a cell of this table.
func (t *TableContext) header(cell *html.Node) string {
	if t == nil || document.Closest(cell, atom.Table) != t.Node {
		return ""
	}
	col := 0
	for s := cell.PrevSibling; s != nil; s = s.PrevSibling {
		if document.IsElement(s, atom.Td) {
			col++
		}
	}
	if col < len(t.Headers) {
		return t.Headers[col]
	}
	return ""
}

func (t *TableContext) rowPhrase() string {
	return fmt.Sprintf("Row: %d of %d.", t.Row, t.Rows)
}

func (t *TableContext) colPhrase() string {
	return fmt.Sprintf("Column: %d of %d.", t.Col, t.Cols)
}

func (t *TableContext) positionPhrase() string {
	return t.rowPhrase() + " " + t.colPhrase()
}

// TablePosition is the cursor reported in a Status while navigating a table.
type TablePosition struct {
	Row, Col   int
	Rows, Cols int
}

// tableRegistry remembers every table reached during linear reading and the
// unit that follows each, so reverse navigation can step around them.
type tableRegistry struct {
	visited []int
	after   map[int]int // unit after a table -> table
	current int
}

func newTableRegistry() *tableRegistry {
	return &tableRegistry{after: make(map[int]int), current: -1}
}

func (r *tableRegistry) visit(table, after, length int) {
	if !slices.Contains(r.visited, table) {
		r.visited = append(r.visited, table)
	}
	if after < length {
		r.after[after] = table
	}
	r.current = table
}

func (r *tableRegistry) tableBefore(pos int) (int, bool) {
	t, ok := r.after[pos]
	return t, ok
}

// visitTable makes the table at idx the active context as its summary is
// about to be read.
func (n *Navigator) visitTable(idx int) {
	u := n.seq.Units[idx]
	t := ReadTable(u.Node)
	t.Index = idx
	t.After = u.End
	n.table = t
	n.tableHit = true
	n.tables.visit(idx, u.End, n.seq.Len())
}

// enterTable switches into two-dimensional navigation of the active table.
func (n *Navigator) enterTable() {
	n.cancel()
	n.mode = TableNavigating
	n.log.Debug("enter table", "table", n.table.Index, "rows", n.table.Rows, "cols", n.table.Cols)
	n.say(enterTablePhrase, func() {
		if n.mode == TableNavigating {
			n.goToFirstCell()
		}
	})
}

func (n *Navigator) goToFirstCell() {
	t := n.table
	if t.Rows == 0 || t.Cols == 0 {
		n.say(emptyTablePhrase, nil)
		return
	}
	t.Row, t.Col = 1, 1
	n.readCell(true, true)
}

// MoveDown moves the table cursor one row down.
func (n *Navigator) MoveDown() {
	n.move(0, 1, endOfTablePhrase)
}

// MoveUp moves the table cursor one row up.
func (n *Navigator) MoveUp() {
	n.move(0, -1, topOfTablePhrase)
}

// MoveLeft moves the table cursor one column left.
func (n *Navigator) MoveLeft() {
	n.move(-1, 0, rowStartPhrase)
}

// MoveRight moves the table cursor one column right.
func (n *Navigator) MoveRight() {
	n.move(1, 0, rowEndPhrase)
}

// move steps the cursor by dc columns and dr rows, or announces boundary
// when that would leave the table.
func (n *Navigator) move(dc, dr int, boundary string) {
	if n.mode != TableNavigating {
		return
	}
	defer n.emit()
	n.cancel()
	t := n.table
	row, col := t.Row+dr, t.Col+dc
	if row < 1 || row > t.Rows || col < 1 || col > t.Cols {
		n.say(boundary, nil)
		return
	}
	t.Row, t.Col = row, col
	n.readCell(dr != 0, dc != 0)
}

// ReadPosition announces the full table cursor.
func (n *Navigator) ReadPosition() {
	if n.mode != TableNavigating {
		return
	}
	defer n.emit()
	n.cancel()
	n.say(n.table.positionPhrase(), nil)
}

// EscapeTable leaves table navigation and resumes reading after the table.
func (n *Navigator) EscapeTable() {
	if n.mode != TableNavigating {
		return
	}
	defer n.emit()
	n.halt()
	n.tableHit = false
	n.mode = Speaking
	n.pos = n.table.After
	n.log.Debug("escape table", "table", n.table.Index, "resume", n.pos)
	n.speakCurrent()
}

// readCell announces what changed about the cursor, then the cell.
func (n *Navigator) readCell(newRow, newCol bool) {
	t := n.table
	var phrase string
	switch {
	case newRow && newCol:
		phrase = t.positionPhrase()
	case newRow:
		phrase = t.rowPhrase()
	default:
		phrase = t.colPhrase()
	}
	cell := t.Cell(t.Row, t.Col)
	n.say(phrase, func() { n.narrateCell(cell) })
}

// narrateCell reads a cell followed by each interactive element inside it,
// moving the linear cursor onto each in turn.
func (n *Navigator) narrateCell(cell *html.Node) {
	idx, ok := n.seq.IndexOf(cell)
	if cell == nil || !ok {
		n.say(emptyCellPhrase, nil)
		return
	}
	steps := []int{idx}
	for j := idx + 1; j < n.seq.Units[idx].End; j++ {
		u := n.seq.Units[j]
		switch u.Kind {
		case KindAnchor, KindButton, KindInput:
			if document.Closest(u.Node, atom.Table) == n.table.Node {
				steps = append(steps, j)
			}
		}
	}
	n.narrateSteps(steps)
}

func (n *Navigator) narrateSteps(steps []int) {
	if len(steps) == 0 || n.mode != TableNavigating {
		return
	}
	idx := steps[0]
	u := n.seq.Units[idx]
	n.pos = idx
	n.skip = false
	n.say(Render(u, n.table), func() {
		rest := func() {
			n.restoreHighlight()
			n.narrateSteps(steps[1:])
		}
		if !n.skip {
			if kind := interactionFor(u); kind != noWindow {
				n.openWindow(kind, idx, rest)
				return
			}
		}
		rest()
	})
	n.setHighlight(u.Node)
}
