package docx

import (
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

// Apply runs one edit batch: structural ops in order, then content
// edits in order. Each operation is isolated; a failure is logged and
// skipped, never aborting the batch. Unresolvable targets are silent
// no-ops.
func (d *Document) Apply(batch docedit.Batch, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for _, op := range batch.Ops {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("docx op skipped", "op", op.Kind, "reason", r)
				}
			}()
			d.applyOp(op)
		}()
	}
	for _, edit := range batch.ContentEdits {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("docx content edit skipped", "target", edit.Target, "reason", r)
				}
			}()
			d.applyContentEdit(edit)
		}()
	}
}

func (d *Document) applyOp(op docedit.Op) {
	switch op.Kind {
	case docedit.OpInsertAfter:
		d.insertParagraph(op.Anchor, op.NewRef, false)
	case docedit.OpInsertBefore:
		d.insertParagraph(op.Anchor, op.NewRef, true)
	case docedit.OpDeleteParagraph:
		d.deleteParagraph(op.Anchor)
	}
}

// insertParagraph splices a new empty paragraph next to the anchor,
// cloning the anchor's w:pPr so the new unit keeps its style, and
// records the symbolic reference. An unresolvable anchor is a no-op.
func (d *Document) insertParagraph(anchorID int, ref string, before bool) {
	anchor, ok := d.paras[anchorID]
	if !ok {
		return
	}
	parent := anchor.Parent()
	if parent == nil {
		return
	}
	newP := etree.NewElement("w:p")
	if pPr := anchor.SelectElement("w:pPr"); pPr != nil {
		newP.AddChild(pPr.Copy())
	}
	idx := anchor.Index()
	if !before {
		idx++
	}
	parent.InsertChildAt(idx, newP)

	d.nextPID++
	d.paras[d.nextPID] = newP
	if ref != "" {
		d.newRefs[strings.ToLower(ref)] = d.nextPID
	}
}

func (d *Document) deleteParagraph(id int) {
	p, ok := d.paras[id]
	if !ok {
		return
	}
	if parent := p.Parent(); parent != nil {
		parent.RemoveChild(p)
	}
	delete(d.paras, id)
}

func (d *Document) applyContentEdit(edit docedit.ContentEdit) {
	target, ok := docedit.ParseTarget(edit.Target)
	if !ok {
		return
	}
	switch target.Kind {
	case docedit.TargetParagraph:
		if p, ok := d.paras[target.Para]; ok {
			applyTextToParagraph(p, edit.Value)
		}
	case docedit.TargetTableCell:
		if tc, ok := d.cells[target.Cell]; ok {
			setCellText(tc, edit.Value.Text())
		}
	case docedit.TargetNewRef:
		if id, ok := d.newRefs[target.Ref]; ok {
			if p, ok := d.paras[id]; ok {
				applyTextToParagraph(p, edit.Value)
			}
		}
	}
}

// runSpec is a transient capture of one run's formatting, taken before
// a replacement and reapplied to the rewritten runs.
type runSpec struct {
	props *etree.Element // copy of w:rPr, may be nil
	text  string
}

func snapshotRuns(p *etree.Element) []runSpec {
	var specs []runSpec
	for _, r := range p.SelectElements("w:r") {
		spec := runSpec{text: runText(r)}
		if rPr := r.SelectElement("w:rPr"); rPr != nil {
			spec.props = rPr.Copy()
		}
		specs = append(specs, spec)
	}
	return specs
}

func runText(r *etree.Element) string {
	var b strings.Builder
	for _, t := range r.SelectElements("w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

func clearRuns(p *etree.Element) {
	for _, r := range p.SelectElements("w:r") {
		p.RemoveChild(r)
	}
}

// applyTextToParagraph replaces the paragraph's runs with new text
// while preserving formatting. With multiple prior runs the new text
// is distributed across the same number of runs proportionally, so
// emphasis boundaries land roughly where they were. The w:pPr stays
// untouched, keeping style and alignment.
func applyTextToParagraph(p *etree.Element, value docedit.Value) {
	specs := snapshotRuns(p)
	clearRuns(p)

	text := value.Text()
	if len(specs) > 1 {
		for i, part := range distribute(text, len(specs)) {
			writeRun(p, specs[i].props, part)
		}
		return
	}
	var props *etree.Element
	if len(specs) == 1 {
		props = specs[0].props
	}
	writeRun(p, props, text)
}

// distribute splits s into n rune-aware chunks whose lengths sum to
// len(s) and differ by at most one, longer chunks first.
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

// writeRun appends one w:r carrying the given formatting. Newlines in
// the text become w:br elements; text segments are written with
// xml:space preserved so leading/trailing spaces survive.
func writeRun(p *etree.Element, props *etree.Element, text string) *etree.Element {
	r := p.CreateElement("w:r")
	if props != nil {
		r.AddChild(props.Copy())
	}
	for i, seg := range strings.Split(text, "\n") {
		if i > 0 {
			r.CreateElement("w:br")
		}
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(seg)
	}
	return r
}

// setCellText clears every run in the cell and writes the replacement
// as a single run in the first paragraph.
func setCellText(tc *etree.Element, text string) {
	paras := tc.SelectElements("w:p")
	for _, p := range paras {
		clearRuns(p)
	}
	var first *etree.Element
	if len(paras) > 0 {
		first = paras[0]
	} else {
		first = tc.CreateElement("w:p")
	}
	writeRun(first, nil, text)
}
