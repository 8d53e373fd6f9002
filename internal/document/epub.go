package document

import (
	"fmt"
	"io"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) Load(filename string) (*html.Node, error) {
	return LoadEPUB(filename)
}

// LoadEPUB merges the body of every spine document into a single tree, in
// spine order. The book title becomes the document <title>.
func LoadEPUB(filename string) (*html.Node, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	doc, head, body := emptyDocument()

	if title := book.Metadata.Title; title != "" {
		t := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
		head.AppendChild(t)
	}

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		section, err := Parse(string(data))
		if err != nil {
			continue
		}
		appendSection(body, section, ref.Item.HREF)
	}

	return doc, nil
}

// appendSection moves the body children of section into body, wrapped in a
// <section> so spine boundaries stay visible in the tree.
func appendSection(body, section *html.Node, href string) {
	src := FindFirst(section, atom.Body)
	if src == nil {
		return
	}
	wrap := &html.Node{Type: html.ElementNode, Data: "section", DataAtom: atom.Section}
	if href != "" {
		wrap.Attr = []html.Attribute{{Key: "data-href", Val: href}}
	}
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		wrap.AppendChild(c)
		c = next
	}
	body.AppendChild(wrap)
}

func emptyDocument() (doc, head, body *html.Node) {
	doc = &html.Node{Type: html.DocumentNode}
	root := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	head = &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	body = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	doc.AppendChild(root)
	root.AppendChild(head)
	root.AppendChild(body)
	return doc, head, body
}
