// Package docx loads Word documents, assigns reference keys to their
// addressable units and applies structural and content edits while
// preserving run-level formatting.
package docx

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/opc"
)

const documentPart = "word/document.xml"

// Document is one loaded Word file plus the identifier arenas built
// over it. Ids are minted per load and never persisted: paragraphs get
// 1..N in document order (non-empty only), tables and cells continue
// from their own counters.
type Document struct {
	pkg  *opc.Package
	doc  *etree.Document
	body *etree.Element

	paras  map[int]*etree.Element // arena id -> w:p
	tables map[int]*etree.Element // arena id -> w:tbl
	cells  map[int]*etree.Element // arena id -> w:tc

	tableOrder []int
	cellsOf    map[int][]int // table arena id -> cell arena ids, row major

	styleNames map[string]string // styleId -> friendly name

	newRefs map[string]int // "nK" -> paragraph arena id
	nextPID int
}

// Load reads a docx package from r and builds the identifier arenas.
func Load(r io.Reader) (*Document, error) {
	pkg, err := opc.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	return fromPackage(pkg)
}

// LoadFile reads a docx package from disk.
func LoadFile(path string) (*Document, error) {
	pkg, err := opc.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	return fromPackage(pkg)
}

func fromPackage(pkg *opc.Package) (*Document, error) {
	xdoc, err := pkg.XML(documentPart)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPart, err)
	}
	root := xdoc.Root()
	if root == nil {
		return nil, fmt.Errorf("%s: empty document", documentPart)
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("%s: missing w:body", documentPart)
	}
	d := &Document{
		pkg:     pkg,
		doc:     xdoc,
		body:    body,
		paras:   make(map[int]*etree.Element),
		tables:  make(map[int]*etree.Element),
		cells:   make(map[int]*etree.Element),
		cellsOf: make(map[int][]int),
		newRefs: make(map[string]int),
	}
	d.styleNames = loadStyleNames(pkg)
	d.index()
	return d, nil
}

// index walks the body once and fills the arenas. Paragraphs count
// non-empty body-level w:p only; paragraphs inside table cells are
// addressed through their cell.
func (d *Document) index() {
	pid := 0
	for _, p := range d.body.SelectElements("w:p") {
		if strings.TrimSpace(paragraphText(p)) == "" {
			continue
		}
		pid++
		d.paras[pid] = p
	}
	d.nextPID = pid

	tid := 0
	cid := 0
	for _, tbl := range d.body.SelectElements("w:tbl") {
		tid++
		d.tables[tid] = tbl
		d.tableOrder = append(d.tableOrder, tid)
		for _, row := range tbl.SelectElements("w:tr") {
			for _, tc := range row.SelectElements("w:tc") {
				cid++
				d.cells[cid] = tc
				d.cellsOf[tid] = append(d.cellsOf[tid], cid)
			}
		}
	}
}

// Paragraph returns the w:p for an arena id.
func (d *Document) Paragraph(id int) (*etree.Element, bool) {
	p, ok := d.paras[id]
	return p, ok
}

// Cell returns the w:tc for a cell arena id.
func (d *Document) Cell(id int) (*etree.Element, bool) {
	c, ok := d.cells[id]
	return c, ok
}

// ResolveNewRef maps a symbolic reference minted by an insert op to
// its paragraph arena id.
func (d *Document) ResolveNewRef(ref string) (int, bool) {
	id, ok := d.newRefs[strings.ToLower(ref)]
	return id, ok
}

// allParagraphs returns every body-level w:p in order, empty included.
// Review notes address paragraphs positionally over this list.
func (d *Document) allParagraphs() []*etree.Element {
	return d.body.SelectElements("w:p")
}

// styleName resolves a style id to its friendly name ("Heading1" ->
// "Heading 1"); unknown ids pass through unchanged.
func (d *Document) styleName(styleID string) string {
	if name, ok := d.styleNames[styleID]; ok {
		return name
	}
	return styleID
}

// paragraphStyleID reads w:pPr/w:pStyle; empty means the default style.
func paragraphStyleID(p *etree.Element) string {
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		if st := pPr.SelectElement("w:pStyle"); st != nil {
			return st.SelectAttrValue("w:val", "")
		}
	}
	return ""
}

// paragraphText concatenates every w:t under the paragraph, with
// newlines for w:br elements.
func paragraphText(p *etree.Element) string {
	var b strings.Builder
	for _, el := range p.FindElements(".//*") {
		switch el.Tag {
		case "t":
			b.WriteString(el.Text())
		case "br":
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// cellText joins the text of every paragraph in the cell.
func cellText(tc *etree.Element) string {
	var parts []string
	for _, p := range tc.SelectElements("w:p") {
		parts = append(parts, paragraphText(p))
	}
	return strings.Join(parts, "\n")
}

func loadStyleNames(pkg *opc.Package) map[string]string {
	names := make(map[string]string)
	doc, err := pkg.XML("word/styles.xml")
	if err != nil || doc.Root() == nil {
		return names
	}
	for _, st := range doc.Root().SelectElements("w:style") {
		id := st.SelectAttrValue("w:styleId", "")
		if id == "" {
			continue
		}
		if n := st.SelectElement("w:name"); n != nil {
			names[id] = n.SelectAttrValue("w:val", id)
		}
	}
	return names
}

// Bytes serializes the mutated package.
func (d *Document) Bytes() ([]byte, error) {
	d.pkg.SetXML(documentPart, d.doc)
	return d.pkg.Bytes()
}

// Save writes the mutated package to path atomically.
func (d *Document) Save(path string) error {
	d.pkg.SetXML(documentPart, d.doc)
	return d.pkg.Save(path)
}
