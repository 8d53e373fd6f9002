// Package outline exports a document's reading sequence: every readable
// unit in order with the text the navigator would say for it.
package outline

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/narrate/internal/document"
	"github.com/metcalfc/narrate/internal/reader"
)

// Entry is one unit of the reading sequence.
type Entry struct {
	Index int    `json:"index" yaml:"index"`
	ID    string `json:"id" yaml:"id"`
	Kind  string `json:"kind" yaml:"kind"`
	Level int    `json:"level,omitempty" yaml:"level,omitempty"`
	Text  string `json:"text" yaml:"text"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml", "xml"}

// FromSequence renders every unit of seq. Cells are rendered against
// their own table so column headers are included.
func FromSequence(seq *reader.Sequence) []Entry {
	tables := map[*html.Node]*reader.TableContext{}
	entries := make([]Entry, 0, seq.Len())
	for _, u := range seq.Units {
		var tc *reader.TableContext
		if u.Kind == reader.KindCell {
			if t := document.Closest(u.Node, atom.Table); t != nil {
				if tc = tables[t]; tc == nil {
					tc = reader.ReadTable(t)
					tables[t] = tc
				}
			}
		}
		entries = append(entries, Entry{
			Index: u.Index,
			ID:    u.ID,
			Kind:  u.Kind.String(),
			Level: u.Level,
			Text:  reader.Render(u, tc),
		})
	}
	return entries
}

// Write encodes entries to w in the named format.
func Write(w io.Writer, entries []Entry, format string) error {
	switch format {
	case "", "text":
		return writeText(w, entries)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "xml":
		return writeXML(w, entries)
	default:
		return fmt.Errorf("unknown outline format %q (want one of %v)", format, Formats)
	}
}

func writeText(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Index, e.ID, e.Kind, e.Text); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeXML(w io.Writer, entries []Entry) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("outline")
	root.CreateAttr("units", strconv.Itoa(len(entries)))
	for _, e := range entries {
		el := root.CreateElement("unit")
		el.CreateAttr("index", strconv.Itoa(e.Index))
		el.CreateAttr("id", e.ID)
		el.CreateAttr("kind", e.Kind)
		if e.Level > 0 {
			el.CreateAttr("level", strconv.Itoa(e.Level))
		}
		el.SetText(e.Text)
	}
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}
