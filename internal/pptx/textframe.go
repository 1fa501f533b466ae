package pptx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

// paraStyle is the per-paragraph part of a text snapshot: indent level
// and alignment survive a replacement even though the runs are
// rewritten.
type paraStyle struct {
	level string
	align string
}

type runSpec struct {
	props *etree.Element // copy of a:rPr, may be nil
}

// setTextWithRuns replaces a text body's content while preserving
// paragraph level/alignment and run fonts. Each replacement line maps
// onto the matching original paragraph (clamped to the last one), and
// the line's characters are distributed across that paragraph's
// original run count so emphasis boundaries stay roughly in place.
func setTextWithRuns(tb *etree.Element, value docedit.Value) {
	lines := value.Lines()

	var styles []paraStyle
	var runSpecs [][]runSpec
	for _, p := range tb.SelectElements("a:p") {
		st := paraStyle{}
		if pPr := p.SelectElement("a:pPr"); pPr != nil {
			st.level = pPr.SelectAttrValue("lvl", "")
			st.align = pPr.SelectAttrValue("algn", "")
		}
		styles = append(styles, st)
		var specs []runSpec
		for _, r := range p.SelectElements("a:r") {
			spec := runSpec{}
			if rPr := r.SelectElement("a:rPr"); rPr != nil {
				spec.props = rPr.Copy()
			}
			specs = append(specs, spec)
		}
		runSpecs = append(runSpecs, specs)
	}

	clearParagraphs(tb)

	for i, line := range lines {
		p := tb.CreateElement("a:p")
		if len(styles) > 0 {
			st := styles[min(i, len(styles)-1)]
			if st.level != "" || st.align != "" {
				pPr := p.CreateElement("a:pPr")
				if st.level != "" {
					pPr.CreateAttr("lvl", st.level)
				}
				if st.align != "" {
					pPr.CreateAttr("algn", st.align)
				}
			}
		}
		var specs []runSpec
		if len(runSpecs) > 0 {
			specs = runSpecs[min(i, len(runSpecs)-1)]
		}
		if len(specs) == 0 {
			appendRun(p, nil, line)
			continue
		}
		if line == "" {
			for _, spec := range specs {
				appendRun(p, spec.props, "")
			}
			continue
		}
		for k, part := range distribute(line, len(specs)) {
			appendRun(p, specs[k].props, part)
		}
	}
}

// setPlainLines writes lines with no formatting carry-over, one
// paragraph each. Used for placeholder slots on freshly created
// slides, which have no formatting worth preserving.
func setPlainLines(tb *etree.Element, lines []string) {
	clearParagraphs(tb)
	if len(lines) == 0 {
		lines = []string{""}
	}
	for _, line := range lines {
		appendRun(tb.CreateElement("a:p"), nil, line)
	}
}

// clearParagraphs removes every a:p, keeping a:bodyPr and a:lstStyle.
func clearParagraphs(tb *etree.Element) {
	for _, p := range tb.SelectElements("a:p") {
		tb.RemoveChild(p)
	}
}

func appendRun(p *etree.Element, props *etree.Element, text string) {
	r := p.CreateElement("a:r")
	if props != nil {
		r.AddChild(props.Copy())
	}
	r.CreateElement("a:t").SetText(text)
}

// distribute splits s into n rune-aware chunks whose lengths sum to
// len(s) and differ by at most one.
func distribute(s string, n int) []string {
	runes := []rune(s)
	base := len(runes) / n
	rem := len(runes) % n
	out := make([]string, 0, n)
	pos := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		out = append(out, string(runes[pos:pos+size]))
		pos += size
	}
	return out
}

// setTableMatrix overwrites an existing table cell by cell up to the
// table's own bounds; extra input rows and columns are dropped, the
// table never grows or shrinks.
func setTableMatrix(tbl *etree.Element, matrix [][]string) {
	rows := tbl.SelectElements("a:tr")
	for r, rowVals := range matrix {
		if r >= len(rows) {
			break
		}
		cells := rows[r].SelectElements("a:tc")
		for c, val := range rowVals {
			if c >= len(cells) {
				break
			}
			setCellText(cells[c], val)
		}
	}
}

func setCellText(tc *etree.Element, text string) {
	tb := tc.SelectElement("a:txBody")
	if tb == nil {
		tb = tc.CreateElement("a:txBody")
		tb.CreateElement("a:bodyPr")
	}
	setPlainLines(tb, []string{text})
}

// ensureSlotTextbox returns the text body for a slot on the slide: an
// existing matching placeholder when the layout provided one, else a
// fresh textbox at a sensible default position.
func (d *Deck) ensureSlotTextbox(s *Slide, slot string) *etree.Element {
	var accept func(string) bool
	switch slot {
	case "title":
		accept = isTitleType
	case "body":
		accept = isBodyType
	}
	if accept != nil {
		for _, sp := range s.shapes() {
			if sp.Tag != "sp" {
				continue
			}
			if t, ok := placeholderType(sp); ok && accept(t) {
				if tb := txBody(sp); tb != nil {
					return tb
				}
			}
		}
	}
	var l, t, w, h float64
	switch slot {
	case "title":
		l, t, w, h = 1, 1, 8, 1
	case "body":
		l, t, w, h = 1, 2, 8, 4
	default:
		l, t, w, h = 1, 1.5, 8, 1.5
	}
	sp := s.addTextbox(inches(l), inches(t), inches(w), inches(h))
	return txBody(sp)
}

func inches(v float64) int {
	return int(v * emuPerInch)
}

// addTextbox appends an empty text box shape and returns it.
func (s *Slide) addTextbox(left, top, width, height int) *etree.Element {
	tree := s.spTree()
	if tree == nil {
		return nil
	}
	id := s.nextShapeID()
	sp := tree.CreateElement("p:sp")

	nv := sp.CreateElement("p:nvSpPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", fmt.Sprintf("TextBox %d", id))
	nv.CreateElement("p:cNvSpPr").CreateAttr("txBox", "1")
	nv.CreateElement("p:nvPr")

	spPr := sp.CreateElement("p:spPr")
	writeXfrm(spPr, left, top, width, height)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	tb := sp.CreateElement("p:txBody")
	bodyPr := tb.CreateElement("a:bodyPr")
	bodyPr.CreateAttr("wrap", "square")
	tb.CreateElement("a:lstStyle")
	tb.CreateElement("a:p")
	return sp
}

func writeXfrm(spPr *etree.Element, left, top, width, height int) {
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.Itoa(left))
	off.CreateAttr("y", strconv.Itoa(top))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.Itoa(width))
	ext.CreateAttr("cy", strconv.Itoa(height))
}

// bodyPlaceholderBounds reads the body placeholder's frame when the
// slide carries one with explicit geometry.
func (s *Slide) bodyPlaceholderBounds() (l, t, w, h int, ok bool) {
	for _, sp := range s.shapes() {
		if sp.Tag != "sp" {
			continue
		}
		pt, isPH := placeholderType(sp)
		if !isPH || pt != "body" {
			continue
		}
		xfrm := sp.FindElement("p:spPr/a:xfrm")
		if xfrm == nil {
			return 0, 0, 0, 0, false
		}
		off := xfrm.SelectElement("a:off")
		ext := xfrm.SelectElement("a:ext")
		if off == nil || ext == nil {
			return 0, 0, 0, 0, false
		}
		l, _ = strconv.Atoi(off.SelectAttrValue("x", ""))
		t, _ = strconv.Atoi(off.SelectAttrValue("y", ""))
		w, _ = strconv.Atoi(ext.SelectAttrValue("cx", ""))
		h, _ = strconv.Atoi(ext.SelectAttrValue("cy", ""))
		return l, t, w, h, w > 0 && h > 0
	}
	return 0, 0, 0, 0, false
}

// addTableFromMatrix creates a table shape sized to the matrix and
// fills it. It lands over the body placeholder when the slide exposes
// one with geometry, else inside safe margins.
func (d *Deck) addTableFromMatrix(s *Slide, matrix [][]string) *etree.Element {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil
	}
	tree := s.spTree()
	if tree == nil {
		return nil
	}
	rows := len(matrix)
	cols := len(matrix[0])

	left, top, width, height, ok := s.bodyPlaceholderBounds()
	if !ok {
		slideW, slideH := d.slideSize()
		left = inches(1)
		top = inches(1.2)
		width = slideW - inches(2)
		height = slideH - int(2.2*emuPerInch)
	}

	id := s.nextShapeID()
	frame := tree.CreateElement("p:graphicFrame")
	nv := frame.CreateElement("p:nvGraphicFramePr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", fmt.Sprintf("Table %d", id))
	nv.CreateElement("p:cNvGraphicFramePr")
	nv.CreateElement("p:nvPr")

	xfrm := frame.CreateElement("p:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.Itoa(left))
	off.CreateAttr("y", strconv.Itoa(top))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.Itoa(width))
	ext.CreateAttr("cy", strconv.Itoa(height))

	graphic := frame.CreateElement("a:graphic")
	data := graphic.CreateElement("a:graphicData")
	data.CreateAttr("uri", "http://schemas.openxmlformats.org/drawingml/2006/table")
	tbl := data.CreateElement("a:tbl")
	tbl.CreateElement("a:tblPr").CreateAttr("firstRow", "1")
	grid := tbl.CreateElement("a:tblGrid")
	colW := width / cols
	for c := 0; c < cols; c++ {
		grid.CreateElement("a:gridCol").CreateAttr("w", strconv.Itoa(colW))
	}
	rowH := height / rows
	for _, rowVals := range matrix {
		tr := tbl.CreateElement("a:tr")
		tr.CreateAttr("h", strconv.Itoa(rowH))
		for c := 0; c < cols; c++ {
			val := ""
			if c < len(rowVals) {
				val = rowVals[c]
			}
			tc := tr.CreateElement("a:tc")
			tb := tc.CreateElement("a:txBody")
			tb.CreateElement("a:bodyPr")
			appendRun(tb.CreateElement("a:p"), nil, val)
			tc.CreateElement("a:tcPr")
		}
	}
	return frame
}
