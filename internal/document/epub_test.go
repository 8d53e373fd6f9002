package document

import (
	"testing"

	"golang.org/x/net/html/atom"
)

func TestAppendSection(t *testing.T) {
	doc, _, body := emptyDocument()
	section, _ := Parse(`<html><body><h1>One</h1><p>Text</p></body></html>`)

	appendSection(body, section, "ch1.xhtml")

	wrap := FindFirst(doc, atom.Section)
	if wrap == nil {
		t.Fatal("expected a section wrapper")
	}
	if href, _ := Attr(wrap, "data-href"); href != "ch1.xhtml" {
		t.Errorf("data-href = %q", href)
	}
	if got := Text(wrap); got != "One Text" {
		t.Errorf("section text = %q, want %q", got, "One Text")
	}
}

func TestEPUBFormat(t *testing.T) {
	f := &EPUBFormat{}
	if f.Name() != "EPUB" {
		t.Errorf("Name() = %q, want EPUB", f.Name())
	}
	if exts := f.Extensions(); len(exts) != 1 || exts[0] != ".epub" {
		t.Errorf("Extensions() = %v, want [.epub]", exts)
	}
	if _, err := f.Load("does-not-exist.epub"); err == nil {
		t.Error("expected error for missing file")
	}
}
