package docx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/opc"
)

const nsW = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func para(text string) string {
	if text == "" {
		return "<w:p/>"
	}
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func loadFixture(t *testing.T, bodyXML string) *Document {
	t.Helper()
	pkg := opc.New()
	pkg.SetPart(opc.ContentTypesPart, []byte(skeletonContentTypes))
	pkg.SetPart("word/styles.xml", []byte(skeletonStyles))
	pkg.SetPart(documentPart, []byte(
		`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document `+nsW+`><w:body>`+bodyXML+`</w:body></w:document>`))
	raw, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	d, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return d
}

func batch(t *testing.T, raw string) docedit.Batch {
	t.Helper()
	var b docedit.Batch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("batch: %v", err)
	}
	return b
}

func bodyTexts(d *Document) []string {
	var out []string
	for _, p := range d.allParagraphs() {
		out = append(out, paragraphText(p))
	}
	return out
}

func TestArenaIDsSkipEmptyParagraphs(t *testing.T) {
	d := loadFixture(t, para("one")+para("")+para("two")+para("three"))
	if len(d.paras) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(d.paras))
	}
	for id, want := range map[int]string{1: "one", 2: "two", 3: "three"} {
		p, ok := d.Paragraph(id)
		if !ok || paragraphText(p) != want {
			t.Fatalf("id %d: got %q", id, paragraphText(p))
		}
	}
}

func TestInsertAfterWithContentEdit(t *testing.T) {
	d := loadFixture(t, para("first")+para("second")+para("third"))
	d.Apply(batch(t, `{"ops":[["insert_after",2,"n1"]],"content_edits":[["n1","Hello"]]}`), nil)

	texts := bodyTexts(d)
	if len(texts) != 4 {
		t.Fatalf("expected 4 paragraphs, got %v", texts)
	}
	if texts[2] != "Hello" {
		t.Fatalf("inserted paragraph misplaced: %v", texts)
	}
}

func TestInsertBeforeInsertedUnitKeepsAnchorOrder(t *testing.T) {
	d := loadFixture(t, para("first")+para("second")+para("third"))
	// n1 gets arena id 4 (ids continue past the last loaded paragraph).
	d.Apply(batch(t, `{"ops":[["insert_after",2,"n1"],["insert_before",4,"n2"]],"content_edits":[["n1","after"],["n2","before"]]}`), nil)

	texts := bodyTexts(d)
	want := []string{"first", "second", "before", "after", "third"}
	if len(texts) != len(want) {
		t.Fatalf("got %v", texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("order wrong at %d: %v", i, texts)
		}
	}
}

func TestInsertClonesAnchorStyle(t *testing.T) {
	d := loadFixture(t, `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>head</w:t></w:r></w:p>`)
	d.Apply(batch(t, `{"ops":[["insert_after",1,"n1"]],"content_edits":[["n1","x"]]}`), nil)

	id, ok := d.ResolveNewRef("n1")
	if !ok {
		t.Fatalf("n1 unresolved")
	}
	p, _ := d.Paragraph(id)
	if paragraphStyleID(p) != "Heading1" {
		t.Fatalf("style not cloned: %q", paragraphStyleID(p))
	}
}

func TestDeleteThenEditIsNoop(t *testing.T) {
	d := loadFixture(t, para("one")+para("two"))
	d.Apply(batch(t, `{"ops":[["delete_paragraph",2]],"content_edits":[["pid:2","ghost"]]}`), nil)

	texts := bodyTexts(d)
	if len(texts) != 1 || texts[0] != "one" {
		t.Fatalf("got %v", texts)
	}
	if _, ok := d.Paragraph(2); ok {
		t.Fatalf("deleted id still resolvable")
	}
}

func TestUnresolvableTargetsAreSilent(t *testing.T) {
	d := loadFixture(t, para("only"))
	d.Apply(batch(t, `{"ops":[["insert_after",99,"n1"],["delete_paragraph",42]],"content_edits":[["pid:99","x"],["n7","y"],["garbage key","z"]]}`), nil)

	texts := bodyTexts(d)
	if len(texts) != 1 || texts[0] != "only" {
		t.Fatalf("document changed: %v", texts)
	}
}

func TestRunRedistributionPreservesFormatBoundaries(t *testing.T) {
	d := loadFixture(t,
		`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r><w:r><w:t>plain</w:t></w:r></w:p>`)
	d.Apply(batch(t, `{"content_edits":[["pid:1","abcdefg"]]}`), nil)

	p, _ := d.Paragraph(1)
	runs := p.SelectElements("w:r")
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	a, b := runText(runs[0]), runText(runs[1])
	if a+b != "abcdefg" {
		t.Fatalf("text lost: %q + %q", a, b)
	}
	if diff := len(a) - len(b); diff < -1 || diff > 1 {
		t.Fatalf("uneven split: %q / %q", a, b)
	}
	if runs[0].SelectElement("w:rPr") == nil || runs[0].SelectElement("w:rPr").SelectElement("w:b") == nil {
		t.Fatalf("bold formatting lost on first run")
	}
	if runs[1].SelectElement("w:rPr") != nil {
		t.Fatalf("plain run gained formatting")
	}
}

func TestListValueBecomesLineBreaks(t *testing.T) {
	d := loadFixture(t, para("old"))
	d.Apply(batch(t, `{"content_edits":[["pid:1",["line1","line2"]]]}`), nil)

	p, _ := d.Paragraph(1)
	if paragraphText(p) != "line1\nline2" {
		t.Fatalf("got %q", paragraphText(p))
	}
	if len(p.FindElements(".//w:br")) != 1 {
		t.Fatalf("expected one w:br")
	}
}

func TestTableCellEdit(t *testing.T) {
	d := loadFixture(t,
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)
	d.Apply(batch(t, `{"content_edits":[["tid:1/cid:2","changed"]]}`), nil)

	tc, ok := d.Cell(2)
	if !ok {
		t.Fatalf("cell 2 missing")
	}
	if got := cellText(tc); got != "changed" {
		t.Fatalf("cell text: %q", got)
	}
	if runs := tc.FindElements(".//w:r"); len(runs) != 1 {
		t.Fatalf("expected single run, got %d", len(runs))
	}
}

func TestStructureSnapshot(t *testing.T) {
	d := loadFixture(t,
		`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="36"/></w:rPr><w:t>Intro</w:t></w:r></w:p>`+
			para("body text")+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>h</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)
	s := d.Structure("report.docx", "f1")

	if s.Type != "docx" || len(s.Body) != 3 {
		t.Fatalf("snapshot: %+v", s)
	}
	head := s.Body[0].(paragraphItem)
	if head.Type != "heading" || head.Style != "Heading 1" || head.IDKey != "pid:1" {
		t.Fatalf("heading item: %+v", head)
	}
	if !head.StyleInfo.Bold || head.StyleInfo.FontSize != "18pt" {
		t.Fatalf("style info: %+v", head.StyleInfo)
	}
	plain := s.Body[1].(paragraphItem)
	if plain.Type != "paragraph" || plain.Text != "body text" {
		t.Fatalf("paragraph item: %+v", plain)
	}
	tbl := s.Body[2].(tableItem)
	if tbl.Rows != 1 || tbl.Columns != 1 || tbl.Cells[0][0].Text != "h" {
		t.Fatalf("table item: %+v", tbl)
	}
}

func TestStructureAfterDeleteKeepsHigherIDs(t *testing.T) {
	d := loadFixture(t, para("one")+para("two")+para("three"))
	d.Apply(batch(t, `{"ops":[["delete_paragraph",1]],"content_edits":[["pid:3","rewritten"]]}`), nil)

	s := d.Structure("report.docx", "f1")
	if len(s.Body) != 2 {
		t.Fatalf("snapshot truncated: %+v", s.Body)
	}
	keys := make(map[string]string)
	for _, item := range s.Body {
		p := item.(paragraphItem)
		keys[p.IDKey] = p.Text
	}
	if keys["pid:2"] != "two" {
		t.Fatalf("pid:2 wrong: %+v", keys)
	}
	if keys["pid:3"] != "rewritten" {
		t.Fatalf("pid:3 missing after delete: %+v", keys)
	}
}

func TestStructureListsInsertedParagraphInDocumentOrder(t *testing.T) {
	d := loadFixture(t, para("one")+para("two"))
	d.Apply(batch(t, `{"ops":[["insert_after",1,"n1"]],"content_edits":[["n1","between"]]}`), nil)

	s := d.Structure("report.docx", "f1")
	if len(s.Body) != 3 {
		t.Fatalf("snapshot: %+v", s.Body)
	}
	mid := s.Body[1].(paragraphItem)
	if mid.Text != "between" || mid.IDKey != "pid:3" {
		t.Fatalf("inserted paragraph out of order: %+v", mid)
	}
}

func TestReviewByPositionAndKey(t *testing.T) {
	d := loadFixture(t, para("")+para("alpha")+para("beta"))
	d.Review([]docedit.Note{
		{HasPos: true, Pos: 1, Comment: "check wording"},
		{Key: "pid:2", Comment: "verify number"},
	})

	texts := bodyTexts(d)
	if !strings.Contains(texts[1], "[AI Comment: check wording]") {
		t.Fatalf("positional note missing: %q", texts[1])
	}
	if !strings.Contains(texts[2], "[AI Comment: verify number]") {
		t.Fatalf("keyed note missing: %q", texts[2])
	}
}

func TestEditSurvivesRoundTrip(t *testing.T) {
	d := loadFixture(t, para("one")+para("two"))
	d.Apply(batch(t, `{"content_edits":[["pid:1","rewritten"]]}`), nil)

	raw, err := d.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	d2, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	p, ok := d2.Paragraph(1)
	if !ok || paragraphText(p) != "rewritten" {
		t.Fatalf("edit lost after round trip")
	}
}

func TestBuilderProducesLoadableDocument(t *testing.T) {
	b := NewBuilder()
	b.Build("Quarterly Report", []ContentItem{
		{Type: "subtitle", Text: "Summary"},
		{Type: "paragraph", Text: "All targets met."},
		{Type: "list", Items: []string{"alpha", "beta"}},
		{Type: "table", Data: [][]string{{"Region", "Total"}, {"North", "12"}}},
		{Type: "image", Query: "skyline"},
	}, nil)

	raw, err := b.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	d, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	s := d.Structure("out.docx", "")
	texts := bodyTexts(d)
	if texts[0] != "Quarterly Report" {
		t.Fatalf("title missing: %v", texts)
	}
	found := false
	for _, txt := range texts {
		if txt == "[image: skyline]" {
			found = true
		}
	}
	if !found {
		t.Fatalf("image placeholder missing: %v", texts)
	}
	if len(s.Body) < 5 {
		t.Fatalf("structure too small: %d items", len(s.Body))
	}
}

func TestFromMarkdown(t *testing.T) {
	items := FromMarkdown("# Head\n\n## Sub\n- item one\n**key point**\nplain line\n")
	wantTypes := []string{"title", "heading", "bullet", "bold", "paragraph"}
	if len(items) != len(wantTypes) {
		t.Fatalf("got %d items", len(items))
	}
	for i, w := range wantTypes {
		if items[i].Type != w {
			t.Fatalf("item %d: %q, want %q", i, items[i].Type, w)
		}
	}
	if items[0].Text != "Head" || items[2].Text != "item one" {
		t.Fatalf("texts wrong: %+v", items)
	}
}
