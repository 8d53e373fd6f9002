package reader

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is one of the recognized content unit types.
type Kind int

const (
	KindTitle Kind = iota
	KindHeading
	KindParagraph
	KindImage
	KindTable
	KindCaption
	KindCell
	KindFooter
	KindHeader
	KindRow
	KindAnchor
	KindInput
	KindButton

	kindCount
)

var kindNames = [kindCount]string{
	KindTitle:     "title",
	KindHeading:   "heading",
	KindParagraph: "paragraph",
	KindImage:     "image",
	KindTable:     "table",
	KindCaption:   "caption",
	KindCell:      "cell",
	KindFooter:    "footer",
	KindHeader:    "header",
	KindRow:       "row",
	KindAnchor:    "anchor",
	KindInput:     "input",
	KindButton:    "button",
}

func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindsByAtom = map[atom.Atom]Kind{
	atom.Title:   KindTitle,
	atom.H1:      KindHeading,
	atom.H2:      KindHeading,
	atom.H3:      KindHeading,
	atom.H4:      KindHeading,
	atom.H5:      KindHeading,
	atom.H6:      KindHeading,
	atom.P:       KindParagraph,
	atom.Img:     KindImage,
	atom.Table:   KindTable,
	atom.Caption: KindCaption,
	atom.Td:      KindCell,
	atom.Tfoot:   KindFooter,
	atom.Th:      KindHeader,
	atom.Tr:      KindRow,
	atom.A:       KindAnchor,
	atom.Input:   KindInput,
	atom.Button:  KindButton,
}

// classify reports whether n is a recognized unit, and its kind and heading
// level. Elements in the SVG and MathML namespaces are never units.
func classify(n *html.Node) (Kind, int, bool) {
	if n.Type != html.ElementNode || n.Namespace != "" {
		return 0, 0, false
	}
	k, ok := kindsByAtom[n.DataAtom]
	if !ok {
		return 0, 0, false
	}
	level := 0
	if k == KindHeading {
		level = int(n.Data[1] - '0')
	}
	return k, level, true
}
