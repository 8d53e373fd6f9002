package document

import (
	"bytes"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (f *MarkdownFormat) Load(filename string) (*html.Node, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return FromMarkdown(data)
}

// markdown renders GitHub-style tables so they can be navigated.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// FromMarkdown renders Markdown to HTML and parses the result.
func FromMarkdown(src []byte) (*html.Node, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return nil, err
	}
	return html.Parse(&buf)
}
