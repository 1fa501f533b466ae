package opc

import (
	"strings"
	"testing"
)

func newTestPackage(t *testing.T) *Package {
	t.Helper()
	p := New()
	p.SetPart(ContentTypesPart, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Default Extension="xml" ContentType="application/xml"/>`+
		`</Types>`))
	p.SetPart("ppt/presentation.xml", []byte(`<?xml version="1.0"?><p:presentation xmlns:p="x"/>`))
	return p
}

func TestRoundTrip(t *testing.T) {
	p := newTestPackage(t)
	b, err := p.Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	p2, err := OpenBytes(b)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !p2.Has("ppt/presentation.xml") {
		t.Fatalf("part missing after round trip: %v", p2.PartNames())
	}
	raw, _ := p2.Part("ppt/presentation.xml")
	if !strings.Contains(string(raw), "p:presentation") {
		t.Fatalf("part content mangled: %s", raw)
	}
}

func TestContentTypesWrittenFirst(t *testing.T) {
	p := New()
	p.SetPart("a/part.xml", []byte("<a/>"))
	p.SetPart(ContentTypesPart, []byte("<Types/>"))
	b, err := p.Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	p2, err := OpenBytes(b)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if p2.PartNames()[0] != ContentTypesPart {
		t.Fatalf("expected content types first, got %v", p2.PartNames())
	}
}

func TestXMLMutationPersists(t *testing.T) {
	p := newTestPackage(t)
	doc, err := p.XML("ppt/presentation.xml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.Root().CreateElement("p:sldIdLst")

	b, err := p.Bytes()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	p2, _ := OpenBytes(b)
	raw, _ := p2.Part("ppt/presentation.xml")
	if !strings.Contains(string(raw), "p:sldIdLst") {
		t.Fatalf("mutation lost: %s", raw)
	}
}

func TestRelsPath(t *testing.T) {
	if got := RelsPath(""); got != "_rels/.rels" {
		t.Fatalf("package rels: got %q", got)
	}
	if got := RelsPath("ppt/presentation.xml"); got != "ppt/_rels/presentation.xml.rels" {
		t.Fatalf("part rels: got %q", got)
	}
	if got := RelsPath("ppt/slides/slide2.xml"); got != "ppt/slides/_rels/slide2.xml.rels" {
		t.Fatalf("slide rels: got %q", got)
	}
}

func TestNextRelID(t *testing.T) {
	p := New()
	rels, err := p.Rels("ppt/presentation.xml")
	if err != nil {
		t.Fatalf("rels: %v", err)
	}
	if id := NextRelID(rels); id != "rId1" {
		t.Fatalf("empty rels: got %q", id)
	}
	AddRelationship(rels, "rId1", "t", "a.xml")
	AddRelationship(rels, "rId7", "t", "b.xml")
	if id := NextRelID(rels); id != "rId8" {
		t.Fatalf("expected rId8, got %q", id)
	}
}

func TestRelTargetAndRemove(t *testing.T) {
	p := New()
	rels, _ := p.Rels("ppt/presentation.xml")
	AddRelationship(rels, "rId1", "type/slide", "slides/slide1.xml")
	if got := RelTarget(rels, "rId1"); got != "slides/slide1.xml" {
		t.Fatalf("target: got %q", got)
	}
	if id, tgt := RelByType(rels, "type/slide"); id != "rId1" || tgt != "slides/slide1.xml" {
		t.Fatalf("by type: got %q %q", id, tgt)
	}
	RemoveRelationship(rels, "rId1")
	if got := RelTarget(rels, "rId1"); got != "" {
		t.Fatalf("expected removed, got %q", got)
	}
}

func TestResolveTarget(t *testing.T) {
	got := ResolveTarget("ppt/slides/slide1.xml", "../comments/comment1.xml")
	if got != "ppt/comments/comment1.xml" {
		t.Fatalf("resolve: got %q", got)
	}
	got = ResolveTarget("ppt/presentation.xml", "slides/slide1.xml")
	if got != "ppt/slides/slide1.xml" {
		t.Fatalf("resolve: got %q", got)
	}
}

func TestEnsureOverrideIdempotent(t *testing.T) {
	p := newTestPackage(t)
	if err := p.EnsureOverride("/ppt/commentAuthors.xml", "ct/authors"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := p.EnsureOverride("/ppt/commentAuthors.xml", "ct/authors"); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	doc, _ := p.XML(ContentTypesPart)
	if n := len(doc.FindElements("//Override")); n != 1 {
		t.Fatalf("expected 1 override, got %d", n)
	}
	if !p.HasOverride("/ppt/commentAuthors.xml") {
		t.Fatalf("override not visible")
	}
}

func TestRemovePart(t *testing.T) {
	p := newTestPackage(t)
	p.RemovePart("ppt/presentation.xml")
	if p.Has("ppt/presentation.xml") {
		t.Fatalf("part still present")
	}
	for _, n := range p.PartNames() {
		if n == "ppt/presentation.xml" {
			t.Fatalf("part still in order slice")
		}
	}
}
