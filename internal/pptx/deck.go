// Package pptx loads PowerPoint decks, keeps the slide order sequence
// and the slide-id map in lock-step with the container's p:sldIdLst,
// and applies structural and content edits. Review comments are
// patched into the saved archive separately, see comments.go.
package pptx

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/opc"
)

const (
	presentationPart = "ppt/presentation.xml"

	relTypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	relTypeCommentAuthors = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/commentAuthors"
	relTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	ctSlide          = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctComments       = "application/vnd.openxmlformats-officedocument.presentationml.comments+xml"
	ctCommentAuthors = "application/vnd.openxmlformats-officedocument.presentationml.commentAuthors+xml"

	emuPerInch = 914400
)

// Slide is one loaded slide part.
type Slide struct {
	ID       int
	RelID    string
	PartName string
	doc      *etree.Document
}

// Deck is one loaded presentation. order, slides and the underlying
// p:sldIdLst move together; every structural edit updates all three.
type Deck struct {
	pkg      *opc.Package
	pres     *etree.Document
	sldIdLst *etree.Element

	order  []int
	slides map[int]*Slide

	newRefs map[string]int // "nK" -> slide id
}

// Load reads a pptx package from r.
func Load(r io.Reader) (*Deck, error) {
	pkg, err := opc.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	return fromPackage(pkg)
}

// LoadFile reads a pptx package from disk.
func LoadFile(path string) (*Deck, error) {
	pkg, err := opc.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	return fromPackage(pkg)
}

func fromPackage(pkg *opc.Package) (*Deck, error) {
	pres, err := pkg.XML(presentationPart)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", presentationPart, err)
	}
	root := pres.Root()
	if root == nil {
		return nil, fmt.Errorf("%s: empty document", presentationPart)
	}
	lst := root.SelectElement("p:sldIdLst")
	if lst == nil {
		lst = root.CreateElement("p:sldIdLst")
	}
	d := &Deck{
		pkg:      pkg,
		pres:     pres,
		sldIdLst: lst,
		slides:   make(map[int]*Slide),
		newRefs:  make(map[string]int),
	}

	rels, err := pkg.Rels(presentationPart)
	if err != nil {
		return nil, err
	}
	for _, sldId := range lst.SelectElements("p:sldId") {
		id, err := strconv.Atoi(sldId.SelectAttrValue("id", ""))
		if err != nil {
			continue
		}
		relID := sldId.SelectAttrValue("r:id", "")
		target := opc.RelTarget(rels, relID)
		if target == "" {
			continue
		}
		partName := opc.ResolveTarget(presentationPart, target)
		doc, err := pkg.XML(partName)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", partName, err)
		}
		d.order = append(d.order, id)
		d.slides[id] = &Slide{ID: id, RelID: relID, PartName: partName, doc: doc}
	}
	return d, nil
}

// Order returns the slide ids in container order.
func (d *Deck) Order() []int {
	out := make([]int, len(d.order))
	copy(out, d.order)
	return out
}

// SlideByID returns the slide for a container slide id.
func (d *Deck) SlideByID(id int) (*Slide, bool) {
	s, ok := d.slides[id]
	return s, ok
}

// SlideByPos returns the slide at a 0-based deck position.
func (d *Deck) SlideByPos(pos int) (*Slide, bool) {
	if pos < 0 || pos >= len(d.order) {
		return nil, false
	}
	return d.slides[d.order[pos]], true
}

// ResolveNewRef maps a symbolic reference minted by an insert op to
// the created slide's id.
func (d *Deck) ResolveNewRef(ref string) (int, bool) {
	id, ok := d.newRefs[strings.ToLower(ref)]
	return id, ok
}

// spTree returns the slide's shape tree.
func (s *Slide) spTree() *etree.Element {
	root := s.doc.Root()
	if root == nil {
		return nil
	}
	cSld := root.SelectElement("p:cSld")
	if cSld == nil {
		return nil
	}
	return cSld.SelectElement("p:spTree")
}

// shapes lists the tree's drawable children in document order.
func (s *Slide) shapes() []*etree.Element {
	tree := s.spTree()
	if tree == nil {
		return nil
	}
	var out []*etree.Element
	for _, el := range tree.ChildElements() {
		switch el.Tag {
		case "sp", "pic", "graphicFrame", "cxnSp":
			out = append(out, el)
		}
	}
	return out
}

// shapeID reads the shape's p:cNvPr id.
func shapeID(sp *etree.Element) int {
	cNvPr := sp.FindElement(".//p:cNvPr")
	if cNvPr == nil {
		return 0
	}
	id, _ := strconv.Atoi(cNvPr.SelectAttrValue("id", ""))
	return id
}

// shapeByID finds a shape on the slide by its cNvPr id.
func (s *Slide) shapeByID(id int) *etree.Element {
	for _, sp := range s.shapes() {
		if shapeID(sp) == id {
			return sp
		}
	}
	return nil
}

// nextShapeID mints a shape id above every id already on the slide.
func (s *Slide) nextShapeID() int {
	max := 1
	for _, cNvPr := range s.doc.FindElements("//p:cNvPr") {
		if id, err := strconv.Atoi(cNvPr.SelectAttrValue("id", "")); err == nil && id > max {
			max = id
		}
	}
	return max + 1
}

// placeholderType reads p:nvSpPr/p:nvPr/p:ph type. The second return
// reports whether the shape is a placeholder at all; an empty type on
// a placeholder means body per the schema default.
func placeholderType(sp *etree.Element) (string, bool) {
	ph := sp.FindElement("p:nvSpPr/p:nvPr/p:ph")
	if ph == nil {
		return "", false
	}
	return ph.SelectAttrValue("type", ""), true
}

func isTitleType(t string) bool {
	switch t {
	case "title", "ctrTitle", "subTitle":
		return true
	}
	return false
}

func isBodyType(t string) bool {
	switch t {
	case "body", "obj", "":
		return true
	}
	return false
}

// titleShape returns the slide's title placeholder, if any.
func (s *Slide) titleShape() *etree.Element {
	for _, sp := range s.shapes() {
		if sp.Tag != "sp" {
			continue
		}
		if t, ok := placeholderType(sp); ok && (t == "title" || t == "ctrTitle") {
			return sp
		}
	}
	return nil
}

// txBody returns the shape's text body (p:txBody for shapes).
func txBody(sp *etree.Element) *etree.Element {
	return sp.SelectElement("p:txBody")
}

// tableOf returns the a:tbl inside a graphic frame, or nil.
func tableOf(sp *etree.Element) *etree.Element {
	return sp.FindElement("a:graphic/a:graphicData/a:tbl")
}

// bodyText joins the non-empty paragraph texts of a text body.
func bodyText(tb *etree.Element) []string {
	var out []string
	for _, p := range tb.SelectElements("a:p") {
		var b strings.Builder
		for _, r := range p.SelectElements("a:r") {
			if t := r.SelectElement("a:t"); t != nil {
				b.WriteString(t.Text())
			}
		}
		if txt := strings.TrimSpace(b.String()); txt != "" {
			out = append(out, txt)
		}
	}
	return out
}

var reSlidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// nextSlidePartName picks the first unused slideN.xml number.
func (d *Deck) nextSlidePartName() string {
	max := 0
	for _, name := range d.pkg.PartsWithPrefix("ppt/slides/") {
		if m := reSlidePart.FindStringSubmatch(name); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("ppt/slides/slide%d.xml", max+1)
}

// nextSlideID mints a new container slide id. Slide ids start at 256
// per the format's convention.
func (d *Deck) nextSlideID() int {
	max := 255
	for _, id := range d.order {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// slideSize reads p:sldSz, defaulting to 16:9.
func (d *Deck) slideSize() (cx, cy int) {
	cx, cy = 12192000, 6858000
	if root := d.pres.Root(); root != nil {
		if sz := root.SelectElement("p:sldSz"); sz != nil {
			if v, err := strconv.Atoi(sz.SelectAttrValue("cx", "")); err == nil {
				cx = v
			}
			if v, err := strconv.Atoi(sz.SelectAttrValue("cy", "")); err == nil {
				cy = v
			}
		}
	}
	return cx, cy
}

// layoutParts lists every slide layout part in numeric order.
func (d *Deck) layoutParts() []string {
	var names []string
	for _, name := range d.pkg.PartsWithPrefix("ppt/slideLayouts/") {
		if strings.HasSuffix(name, ".xml") && !strings.Contains(name, "_rels") {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return layoutNumber(names[i]) < layoutNumber(names[j])
	})
	return names
}

var reLayoutPart = regexp.MustCompile(`slideLayout(\d+)\.xml$`)

func layoutNumber(name string) int {
	if m := reLayoutPart.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// layoutOf resolves the layout part a slide is based on.
func (d *Deck) layoutOf(s *Slide) string {
	rels, err := d.pkg.Rels(s.PartName)
	if err != nil {
		return ""
	}
	_, target := opc.RelByType(rels, relTypeSlideLayout)
	if target == "" {
		return ""
	}
	return opc.ResolveTarget(s.PartName, target)
}

// Bytes serializes the mutated package.
func (d *Deck) Bytes() ([]byte, error) {
	if err := d.flush(); err != nil {
		return nil, err
	}
	return d.pkg.Bytes()
}

// Save writes the mutated package to path atomically.
func (d *Deck) Save(path string) error {
	if err := d.flush(); err != nil {
		return err
	}
	return d.pkg.Save(path)
}

func (d *Deck) flush() error {
	d.pkg.SetXML(presentationPart, d.pres)
	for _, s := range d.slides {
		d.pkg.SetXML(s.PartName, s.doc)
	}
	return nil
}
