package pptx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/opc"
)

const fixtureNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

func fixtureBytes(t *testing.T) []byte {
	t.Helper()
	pkg := opc.New()
	pkg.SetPart(opc.ContentTypesPart, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/><Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/><Override PartName="/ppt/slides/slide2.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/></Types>`))
	pkg.SetPart("_rels/.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/></Relationships>`))
	pkg.SetPart("ppt/presentation.xml", []byte(`<?xml version="1.0"?>
<p:presentation `+fixtureNS+`><p:sldIdLst><p:sldId id="256" r:id="rId1"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`))
	pkg.SetPart("ppt/_rels/presentation.xml.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/></Relationships>`))

	pkg.SetPart("ppt/slides/slide1.xml", []byte(`<?xml version="1.0"?>
<p:sld `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Welcome</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`))
	pkg.SetPart("ppt/slides/_rels/slide1.xml.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`))

	pkg.SetPart("ppt/slides/slide2.xml", []byte(`<?xml version="1.0"?>
<p:sld `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 2"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Agenda</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="3" name="Content 3"/><p:cNvSpPr/><p:nvPr><p:ph/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:pPr lvl="1" algn="l"/><a:r><a:rPr b="1"/><a:t>first</a:t></a:r><a:r><a:t>second</a:t></a:r></a:p></p:txBody></p:sp><p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="4" name="Table 4"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm><a:off x="0" y="0"/><a:ext cx="100" cy="100"/></p:xfrm><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblGrid><a:gridCol w="50"/><a:gridCol w="50"/></a:tblGrid><a:tr h="50"><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>h1</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>h2</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc></a:tr><a:tr h="50"><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>v1</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>v2</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame></p:spTree></p:cSld></p:sld>`))
	pkg.SetPart("ppt/slides/_rels/slide2.xml.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout2.xml"/></Relationships>`))

	pkg.SetPart("ppt/slideLayouts/slideLayout1.xml", []byte(`<?xml version="1.0"?>
<p:sldLayout `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr/><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to add title</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sldLayout>`))
	pkg.SetPart("ppt/slideLayouts/slideLayout2.xml", []byte(`<?xml version="1.0"?>
<p:sldLayout `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to add title</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="3" name="Content"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to add text</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="4" name="Slide Number"/><p:cNvSpPr/><p:nvPr><p:ph type="sldNum"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p/></p:txBody></p:sp></p:spTree></p:cSld></p:sldLayout>`))

	raw, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return raw
}

func loadFixture(t *testing.T) *Deck {
	t.Helper()
	d, err := Load(bytes.NewReader(fixtureBytes(t)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return d
}

func fixtureFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, fixtureBytes(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func batch(t *testing.T, raw string) docedit.Batch {
	t.Helper()
	var b docedit.Batch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("batch: %v", err)
	}
	return b
}

func TestLoadOrderAndStructure(t *testing.T) {
	d := loadFixture(t)
	if got := d.Order(); len(got) != 2 || got[0] != 256 || got[1] != 257 {
		t.Fatalf("order: %v", got)
	}
	s := d.Structure("deck.pptx", "f1")
	if len(s.SlideIDOrder) != 2 || len(s.Body) != 2 {
		t.Fatalf("snapshot: %+v", s)
	}
	first := s.Body[0].(slideItem)
	if first.Title != "Welcome" || first.IDKey != "sid:256" {
		t.Fatalf("slide 1: %+v", first)
	}
	second := s.Body[1].(slideItem)
	if len(second.Shapes) != 3 {
		t.Fatalf("slide 2 shapes: %+v", second.Shapes)
	}
	if second.Shapes[0].Kind != "title" || second.Shapes[1].Kind != "textbox" || second.Shapes[2].Kind != "table" {
		t.Fatalf("shape kinds: %+v", second.Shapes)
	}
	if second.Shapes[2].IDKey != "sid:257/shid:4" {
		t.Fatalf("table key: %q", second.Shapes[2].IDKey)
	}
	if rows := second.Shapes[2].Rows; len(rows) != 2 || rows[0][1] != "h2" {
		t.Fatalf("table rows: %v", rows)
	}
}

func TestResolveDonor(t *testing.T) {
	order := []int{256, 257, 258}
	cases := []struct {
		anchor int
		kind   string
		want   int
	}{
		{256, "insert_after", 257},  // after the first: next donates
		{257, "insert_after", 257},  // mid-deck: anchor donates
		{258, "insert_before", 257}, // before the last: previous donates
		{257, "insert_before", 257},
	}
	for _, c := range cases {
		got, ok := resolveDonor(order, c.anchor, c.kind)
		if !ok || got != c.want {
			t.Fatalf("donor(%d,%s) = %d, want %d", c.anchor, c.kind, got, c.want)
		}
	}
	if got, ok := resolveDonor(order, 999, "insert_after"); !ok || got != 257 {
		t.Fatalf("missing anchor donor: %d", got)
	}
	if _, ok := resolveDonor(nil, 256, "insert_after"); ok {
		t.Fatalf("empty order should have no donor")
	}
}

func TestDeleteSlide(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"ops":[["delete_slide",256]]}`), nil)

	if got := d.Order(); len(got) != 1 || got[0] != 257 {
		t.Fatalf("order after delete: %v", got)
	}
	raw, err := d.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	d2, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := d2.Order(); len(got) != 1 || got[0] != 257 {
		t.Fatalf("order after round trip: %v", got)
	}
}

func TestInsertAfterCreatesSlideFromDonorLayout(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"ops":[["insert_after",256,"n1"]],"content_edits":[["n1:slot:title","New Title"],["n1:slot:body",["point a","point b"]]]}`), nil)

	order := d.Order()
	if len(order) != 3 || order[1] != 258 {
		t.Fatalf("order after insert: %v", order)
	}
	slide, ok := d.SlideByID(258)
	if !ok {
		t.Fatalf("new slide missing")
	}
	// Donor is the slide after the opener, so the body-capable layout
	// seeds the new slide and the slide-number placeholder stays out.
	if got := d.layoutOf(slide); !strings.HasSuffix(got, "slideLayout2.xml") {
		t.Fatalf("layout: %q", got)
	}
	for _, sp := range slide.shapes() {
		if pt, ok := placeholderType(sp); ok && pt == "sldNum" {
			t.Fatalf("slide-number placeholder cloned onto slide")
		}
	}
	s := d.Structure("deck.pptx", "")
	inserted := s.Body[1].(slideItem)
	if inserted.Title != "New Title" {
		t.Fatalf("title not written: %+v", inserted)
	}
	found := false
	for _, sh := range inserted.Shapes {
		for _, p := range sh.Paragraphs {
			if p == "point b" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("body lines not written: %+v", inserted.Shapes)
	}
}

func TestInsertBeforeLastFallsBackToBodyLayout(t *testing.T) {
	d := loadFixture(t)
	// Donor is slide 256 (title-only layout); the body need forces the
	// scan to settle on the layout that has one.
	d.Apply(batch(t, `{"ops":[["insert_before",257,"n1"]],"content_edits":[["n1:slot:body","content"]]}`), nil)

	slide, ok := d.SlideByID(258)
	if !ok {
		t.Fatalf("new slide missing")
	}
	if got := d.layoutOf(slide); !strings.HasSuffix(got, "slideLayout2.xml") {
		t.Fatalf("layout: %q", got)
	}
	if got := d.Order(); got[1] != 258 || got[2] != 257 {
		t.Fatalf("order: %v", got)
	}
}

func TestExplicitLayoutDonor(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"ops":[["insert_after",257,"n1",{"layout_like_sid":256}]]}`), nil)

	slide, ok := d.SlideByID(258)
	if !ok {
		t.Fatalf("new slide missing")
	}
	if got := d.layoutOf(slide); !strings.HasSuffix(got, "slideLayout1.xml") {
		t.Fatalf("layout: %q", got)
	}
}

func TestTableMatrixClampsToExistingBounds(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"content_edits":[["sid:257/shid:4",[["a","b","extra"],["c","d","extra"],["x","y","z"]]]]}`), nil)

	slide, _ := d.SlideByID(257)
	tbl := tableOf(slide.shapeByID(4))
	rows := tbl.SelectElements("a:tr")
	if len(rows) != 2 {
		t.Fatalf("row count changed: %d", len(rows))
	}
	if cells := rows[0].SelectElements("a:tc"); len(cells) != 2 {
		t.Fatalf("column count changed: %d", len(cells))
	}
	got := tableRows(slide.shapeByID(4))
	if got[0][0] != "a" || got[1][1] != "d" {
		t.Fatalf("values: %v", got)
	}
}

func TestShapeTextPreservesRunsAndParagraphStyle(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"content_edits":[["sid:257/shid:3","abcdefg"]]}`), nil)

	slide, _ := d.SlideByID(257)
	tb := txBody(slide.shapeByID(3))
	paras := tb.SelectElements("a:p")
	if len(paras) != 1 {
		t.Fatalf("paragraph count: %d", len(paras))
	}
	pPr := paras[0].SelectElement("a:pPr")
	if pPr == nil || pPr.SelectAttrValue("lvl", "") != "1" || pPr.SelectAttrValue("algn", "") != "l" {
		t.Fatalf("paragraph style lost")
	}
	runs := paras[0].SelectElements("a:r")
	if len(runs) != 2 {
		t.Fatalf("run count: %d", len(runs))
	}
	t1 := runs[0].SelectElement("a:t").Text()
	t2 := runs[1].SelectElement("a:t").Text()
	if t1+t2 != "abcdefg" {
		t.Fatalf("text lost: %q %q", t1, t2)
	}
	if diff := len(t1) - len(t2); diff < -1 || diff > 1 {
		t.Fatalf("uneven split: %q / %q", t1, t2)
	}
	if rPr := runs[0].SelectElement("a:rPr"); rPr == nil || rPr.SelectAttrValue("b", "") != "1" {
		t.Fatalf("bold run lost its font")
	}
}

func TestSlotTableCreation(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"ops":[["insert_after",257,"n1"]],"content_edits":[["n1:slot:table",[["q","r"],["s","u"]]]]}`), nil)

	slide, ok := d.SlideByID(258)
	if !ok {
		t.Fatalf("new slide missing")
	}
	var rows [][]string
	for _, sp := range slide.shapes() {
		if tableOf(sp) != nil {
			rows = tableRows(sp)
		}
	}
	if len(rows) != 2 || rows[1][1] != "u" {
		t.Fatalf("table not created: %v", rows)
	}
}

func TestUnresolvableOpsAreSilent(t *testing.T) {
	d := loadFixture(t)
	d.Apply(batch(t, `{"ops":[["insert_after",999,"n1"],["delete_slide",888]],"content_edits":[["sid:999/shid:1","x"],["n9:slot:body","y"]]}`), nil)
	if got := d.Order(); len(got) != 2 {
		t.Fatalf("deck changed: %v", got)
	}
}

func TestAddCommentReusesAuthorAndIncrementsIdx(t *testing.T) {
	path := fixtureFile(t)
	if err := AddComment(path, 1, "first note", 5000, 1000); err != nil {
		t.Fatalf("first comment: %v", err)
	}
	if err := AddComment(path, 1, "second note", 5000, 2500); err != nil {
		t.Fatalf("second comment: %v", err)
	}

	pkg, err := opc.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	authors, err := pkg.XML("ppt/commentAuthors.xml")
	if err != nil {
		t.Fatalf("authors part: %v", err)
	}
	list := authors.FindElements("//p:cmAuthor")
	if len(list) != 1 {
		t.Fatalf("expected one author, got %d", len(list))
	}
	if list[0].SelectAttrValue("name", "") != "AI Reviewer" || list[0].SelectAttrValue("id", "") != "0" {
		t.Fatalf("author record: %v", list[0].Attr)
	}
	comments, err := pkg.XML("ppt/comments/comment1.xml")
	if err != nil {
		t.Fatalf("comment part: %v", err)
	}
	cms := comments.FindElements("//p:cm")
	if len(cms) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(cms))
	}
	if cms[0].SelectAttrValue("idx", "") != "1" || cms[1].SelectAttrValue("idx", "") != "2" {
		t.Fatalf("indices: %v %v", cms[0].Attr, cms[1].Attr)
	}
	if !pkg.HasOverride("/ppt/commentAuthors.xml") || !pkg.HasOverride("/ppt/comments/comment1.xml") {
		t.Fatalf("content-type overrides missing")
	}
	slideRels, _ := pkg.Rels("ppt/slides/slide1.xml")
	if id, _ := opc.RelByType(slideRels, relTypeComments); id == "" {
		t.Fatalf("slide comments relationship missing")
	}
}

func TestReviewGroupsNotesBySlide(t *testing.T) {
	path := fixtureFile(t)
	notes := []docedit.Note{
		{HasPos: true, Pos: 0, Comment: "opener too plain"},
		{Key: "sid:257", Comment: "tighten agenda"},
		{Key: "sid:257/shid:4", Comment: "check totals"},
	}
	if err := Review(path, notes, nil); err != nil {
		t.Fatalf("review: %v", err)
	}
	pkg, err := opc.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	c1, err := pkg.XML("ppt/comments/comment1.xml")
	if err != nil {
		t.Fatalf("comment1: %v", err)
	}
	if n := len(c1.FindElements("//p:cm")); n != 1 {
		t.Fatalf("slide 1 comments: %d", n)
	}
	c2, err := pkg.XML("ppt/comments/comment2.xml")
	if err != nil {
		t.Fatalf("comment2: %v", err)
	}
	cms := c2.FindElements("//p:cm")
	if len(cms) != 2 {
		t.Fatalf("slide 2 comments: %d", len(cms))
	}
	shapeTagged := false
	for _, cm := range cms {
		if txt := cm.SelectElement("p:text"); txt != nil && strings.Contains(txt.Text(), "[Shape 4]") {
			shapeTagged = true
		}
	}
	if !shapeTagged {
		t.Fatalf("shape-scoped note lost its tag")
	}
}

func TestCreateFromTemplate(t *testing.T) {
	path := fixtureFile(t)
	d, err := CreateFromTemplate(path, "Launch Plan", []SlideSpec{
		{Title: "Timeline", Content: []string{"Q1 scope", "Q2 build"}},
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := d.Order(); len(got) != 2 {
		t.Fatalf("order: %v", got)
	}
	s := d.Structure("out.pptx", "")
	title := s.Body[0].(slideItem)
	if title.Title != "Launch Plan" {
		t.Fatalf("title slide: %+v", title)
	}
	content := s.Body[1].(slideItem)
	if content.Title != "Timeline" {
		t.Fatalf("content slide: %+v", content)
	}
	found := false
	for _, sh := range content.Shapes {
		for _, p := range sh.Paragraphs {
			if p == "Q2 build" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("content lines missing: %+v", content.Shapes)
	}
}

// wideFixtureFile writes a template with n title-only slides, ids
// 256..255+n, all based on the same layout.
func wideFixtureFile(t *testing.T, n int) string {
	t.Helper()
	pkg := opc.New()

	var overrides, sldIds, presRels strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
		fmt.Fprintf(&sldIds, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i, i)
	}
	pkg.SetPart(opc.ContentTypesPart, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`+overrides.String()+`</Types>`))
	pkg.SetPart("_rels/.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/></Relationships>`))
	pkg.SetPart("ppt/presentation.xml", []byte(`<?xml version="1.0"?>
<p:presentation `+fixtureNS+`><p:sldIdLst>`+sldIds.String()+`</p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`))
	pkg.SetPart("ppt/_rels/presentation.xml.rels", []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+presRels.String()+`</Relationships>`))

	for i := 1; i <= n; i++ {
		pkg.SetPart(fmt.Sprintf("ppt/slides/slide%d.xml", i), []byte(fmt.Sprintf(`<?xml version="1.0"?>
<p:sld `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title %d"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Slide %d</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`, i, i)))
		pkg.SetPart(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i), []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`))
	}
	pkg.SetPart("ppt/slideLayouts/slideLayout1.xml", []byte(`<?xml version="1.0"?>
<p:sldLayout `+fixtureNS+`><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to add title</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="3" name="Content"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to add text</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sldLayout>`))

	raw, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("wide fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "template.pptx")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write wide fixture: %v", err)
	}
	return path
}

func TestCreateFromTemplateDropsAllTemplateSlides(t *testing.T) {
	path := wideFixtureFile(t, 4)
	d, err := CreateFromTemplate(path, "Deck", []SlideSpec{
		{Title: "Only", Content: []string{"a"}},
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order := d.Order()
	if len(order) != 2 || order[0] != 256 {
		t.Fatalf("template slides leaked: %v", order)
	}

	raw, err := d.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	d2, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := d2.Order(); len(got) != 2 {
		t.Fatalf("order after round trip: %v", got)
	}
	s := d2.Structure("out.pptx", "")
	if title := s.Body[0].(slideItem); title.Title != "Deck" {
		t.Fatalf("title slide: %+v", title)
	}
	if content := s.Body[1].(slideItem); content.Title != "Only" {
		t.Fatalf("content slide: %+v", content)
	}
}

func TestAddCommentResolvesSlidePartByPosition(t *testing.T) {
	path := fixtureFile(t)
	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// The inserted slide becomes slide3.xml but sits at position 2.
	d.Apply(batch(t, `{"ops":[["insert_after",256,"n1"]]}`), nil)
	if err := d.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := AddComment(path, 2, "positioned note", 5000, 1000); err != nil {
		t.Fatalf("comment: %v", err)
	}
	pkg, err := opc.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !pkg.Has("ppt/comments/comment3.xml") {
		t.Fatalf("comment part not named after the slide part")
	}
	slideRels, err := pkg.Rels("ppt/slides/slide3.xml")
	if err != nil {
		t.Fatalf("slide rels: %v", err)
	}
	if id, _ := opc.RelByType(slideRels, relTypeComments); id == "" {
		t.Fatalf("comments relationship missing on the slide at position 2")
	}
	oldRels, err := pkg.Rels("ppt/slides/slide2.xml")
	if err != nil {
		t.Fatalf("slide2 rels: %v", err)
	}
	if id, _ := opc.RelByType(oldRels, relTypeComments); id != "" {
		t.Fatalf("comment landed on the wrong slide part")
	}
}

func TestDynamicFontSize(t *testing.T) {
	if got := dynamicFontSize([]string{"short"}, 400, 24, 12); got != 24 {
		t.Fatalf("short content: %d", got)
	}
	long := []string{strings.Repeat("x", 800)}
	if got := dynamicFontSize(long, 400, 24, 12); got != 12 {
		t.Fatalf("long content: %d", got)
	}
	mid := []string{strings.Repeat("x", 600)}
	if got := dynamicFontSize(mid, 400, 24, 12); got != 16 {
		t.Fatalf("mid content: %d", got)
	}
}
