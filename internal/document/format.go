package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Format defines a file format that can be loaded as a node tree.
type Format interface {
	Name() string
	Extensions() []string
	Load(filename string) (*html.Node, error)
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Load reads a file into a node tree, using a registered format or the
// plain text fallback.
func Load(filename string) (*html.Node, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				doc, err := f.Load(filename)
				if err != nil {
					return nil, fmt.Errorf("load %s as %s: %w", filename, f.Name(), err)
				}
				return doc, nil
			}
		}
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return FromText(string(data))
}

// FromText turns plain text into a document with one paragraph per
// blank-line separated block.
func FromText(text string) (*html.Node, error) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(strings.TrimSpace(block)))
		sb.WriteString("</p>")
	}
	sb.WriteString("</body></html>")
	return Parse(sb.String())
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// HTMLFormat implements Format for HTML files.
type HTMLFormat struct{}

func init() {
	Register(&HTMLFormat{})
}

func (f *HTMLFormat) Name() string         { return "HTML" }
func (f *HTMLFormat) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

func (f *HTMLFormat) Load(filename string) (*html.Node, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return html.Parse(file)
}
