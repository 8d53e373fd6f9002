package reader

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/metcalfc/narrate/internal/document"
)

// Phrases spoken outside of unit rendering.
const (
	endOfDocumentPhrase = "End of document."
	noContentPhrase     = "ERROR: No readable elements in document."
	enterTablePhrase    = "Enter table. Press escape to exit table navigation."
	emptyTablePhrase    = "An empty table."
	emptyCellPhrase     = "An empty cell."
	topOfTablePhrase    = "Top of Table."
	endOfTablePhrase    = "End of Table."
	rowStartPhrase      = "Beginning of Row."
	rowEndPhrase        = "End of Row."
)

type renderFunc func(u Unit, t *TableContext) string

// renderers is indexed by Kind; every kind has an entry.
var renderers = [kindCount]renderFunc{
	KindTitle:     renderTitle,
	KindHeading:   renderHeading,
	KindParagraph: renderParagraph,
	KindImage:     renderImage,
	KindTable:     renderTable,
	KindCaption:   renderCaption,
	KindCell:      renderCell,
	KindFooter:    renderFooter,
	KindHeader:    renderHeader,
	KindRow:       renderRow,
	KindAnchor:    renderAnchor,
	KindInput:     renderInput,
	KindButton:    renderButton,
}

// Render returns the text spoken for u. Cells consult the active table
// context, which may be nil, for their column header.
func Render(u Unit, active *TableContext) string {
	if u.Kind < 0 || u.Kind >= kindCount {
		return ""
	}
	return renderers[u.Kind](u, active)
}

func orElse(text, empty string) string {
	if text == "" {
		return empty
	}
	return text
}

func renderTitle(u Unit, _ *TableContext) string {
	if t := document.Text(u.Node); t != "" {
		return "Title: " + t
	}
	return "An empty title."
}

func renderHeading(u Unit, _ *TableContext) string {
	if t := document.Text(u.Node); t != "" && u.Level > 0 {
		return fmt.Sprintf("Heading %d: %s", u.Level, t)
	}
	return "An empty heading."
}

func renderParagraph(u Unit, _ *TableContext) string {
	return orElse(document.Text(u.Node), "An empty paragraph.")
}

func renderImage(u Unit, _ *TableContext) string {
	if alt, ok := document.Attr(u.Node, "alt"); ok {
		return "An image of " + alt
	}
	return "An image of unknown description."
}

func renderTable(u Unit, _ *TableContext) string {
	var sb strings.Builder
	caption := document.FindFirst(u.Node, atom.Caption)
	switch {
	case caption == nil:
		sb.WriteString("A table with no caption. ")
	case document.Text(caption) == "":
		sb.WriteString("A table with an empty caption. ")
	default:
		sb.WriteString("A table with caption " + document.Text(caption) + ". ")
	}
	t := ReadTable(u.Node)
	fmt.Fprintf(&sb, "This table has %d rows and %d columns. ", t.Rows, t.Cols)
	sb.WriteString("Press Enter to begin navigating the table.")
	return sb.String()
}

func renderCaption(u Unit, _ *TableContext) string {
	return orElse(document.Text(u.Node), "An empty caption.")
}

func renderCell(u Unit, active *TableContext) string {
	text := document.Text(u.Node)
	if text == "" {
		return emptyCellPhrase
	}
	if h := active.header(u.Node); h != "" {
		return h + ": " + text
	}
	return text
}

func renderFooter(u Unit, _ *TableContext) string {
	if t := document.Text(u.Node); t != "" {
		return "Footer: " + t
	}
	return "An empty footer."
}

func renderHeader(u Unit, _ *TableContext) string {
	if t := document.Text(u.Node); t != "" {
		return "Header: " + t
	}
	return "An empty header."
}

func renderRow(Unit, *TableContext) string {
	return "Row."
}

func renderAnchor(u Unit, _ *TableContext) string {
	href, ok := document.Attr(u.Node, "href")
	if !ok {
		return "A link to an unknown website."
	}
	host := shortHost(href)
	if t := document.Text(u.Node); t != "" {
		return "A link to " + host + " with description " + t + ". Press Enter to visit in new tab."
	}
	return "A link to " + host + ". Press Enter to visit in new tab."
}

// shortHost reduces a link target to its host name without "www.".
func shortHost(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Hostname() == "" {
		return href
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var supportedInputTypes = map[string]bool{
	"text":   true,
	"submit": true,
	"button": true,
}

// inputType returns the lower-cased type of an input, "text" when absent.
func inputType(n *html.Node) string {
	t, _ := document.Attr(n, "type")
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "text"
	}
	return t
}

func renderInput(u Unit, _ *TableContext) string {
	if t := inputType(u.Node); supportedInputTypes[t] {
		return "An input element of type " + t + ". Press Enter to interact, Escape to exit."
	}
	return "An input element of unsupported type."
}

func renderButton(u Unit, _ *TableContext) string {
	desc := document.Label(u.Node)
	if desc == "" {
		desc = document.Text(u.Node)
	}
	if desc != "" {
		return "A button with description: " + desc + ". Press Enter to interact, Escape to exit."
	}
	return "A button with no description. Press Enter to interact, Escape to exit."
}
