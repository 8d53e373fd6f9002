// Package document provides read access to an HTML node tree for narration,
// plus loaders that turn HTML, EPUB, Markdown and plain text into such a tree.
package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HighlightProperty is the style property toggled while a node is narrated.
const HighlightProperty = "background-color"

// blockElements get a word break on either side when text is collected.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Figcaption: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Tbody: true, atom.Td: true, atom.Tfoot: true, atom.Th: true,
	atom.Thead: true, atom.Tr: true, atom.Ul: true,
}

// Parse reads an HTML document.
func Parse(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// IsElement reports whether n is an element with the given tag.
func IsElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// ID returns the node's id attribute.
func ID(n *html.Node) string {
	id, _ := Attr(n, "id")
	return id
}

// SetID assigns the node's id attribute.
func SetID(n *html.Node, id string) {
	SetAttr(n, "id", id)
}

// Text returns the rendered text of n's subtree with whitespace collapsed,
// roughly what a browser reports as innerText.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectText(n, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Template, atom.Noscript:
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
	if block {
		sb.WriteByte(' ')
	}
}

// Style returns the value of one property from the inline style attribute.
func Style(n *html.Node, prop string) string {
	style, _ := Attr(n, "style")
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// SetStyle sets one inline style property, leaving the others untouched.
// An empty value removes the property.
func SetStyle(n *html.Node, prop, val string) {
	style, _ := Attr(n, "style")
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		k, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(k), prop) {
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if val != "" {
		decls = append(decls, prop+": "+val)
	}
	if len(decls) == 0 {
		removeAttr(n, "style")
		return
	}
	SetAttr(n, "style", strings.Join(decls, "; "))
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Children returns the element children of n with the given tag.
func Children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c, a) {
			out = append(out, c)
		}
	}
	return out
}

// FindAll returns descendants of n with the given tag in document order.
// When n is a table or lies inside one, nested tables are not entered
// unless tables themselves are being searched for.
func FindAll(n *html.Node, a atom.Atom) []*html.Node {
	skipTables := a != atom.Table && (IsElement(n, atom.Table) || Closest(n, atom.Table) != nil)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if IsElement(c, a) {
				out = append(out, c)
			}
			if skipTables && IsElement(c, atom.Table) {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// FindFirst returns the first descendant of n with the given tag.
func FindFirst(n *html.Node, a atom.Atom) *html.Node {
	if all := FindAll(n, a); len(all) > 0 {
		return all[0]
	}
	return nil
}

// Closest returns the nearest ancestor of n (excluding n) with the given tag.
func Closest(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsElement(p, a) {
			return p
		}
	}
	return nil
}

// Root returns the top of the tree that contains n.
func Root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Label returns the text of the label describing a form control: a <label>
// whose for attribute names the control, or else a <label> wrapping it.
func Label(n *html.Node) string {
	if id := ID(n); id != "" {
		for _, l := range FindAll(Root(n), atom.Label) {
			if f, _ := Attr(l, "for"); f == id {
				if t := Text(l); t != "" {
					return t
				}
			}
		}
	}
	if l := Closest(n, atom.Label); l != nil {
		return Text(l)
	}
	return ""
}
