package pptx

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/opc"
)

// Apply runs one edit batch. Structural ops execute first so content
// edits can address slides created in the same batch through their
// symbolic references. Failures are isolated per operation.
func (d *Deck) Apply(batch docedit.Batch, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	needs := docedit.CollectSlotNeeds(batch.ContentEdits)

	for _, op := range batch.Ops {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("pptx op skipped", "op", op.Kind, "reason", r)
				}
			}()
			d.applyOp(op, needs)
		}()
	}
	for _, edit := range batch.ContentEdits {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("pptx content edit skipped", "target", edit.Target, "reason", r)
				}
			}()
			d.applyContentEdit(edit)
		}()
	}
}

func (d *Deck) applyOp(op docedit.Op, needs map[string]docedit.SlotNeeds) {
	switch op.Kind {
	case docedit.OpInsertAfter, docedit.OpInsertBefore:
		d.insertSlide(op, needs)
	case docedit.OpDeleteSlide:
		d.deleteSlide(op.Anchor)
	}
}

// insertSlide builds a new slide from the resolved layout and splices
// it next to the anchor. An anchor missing from the order is a no-op.
func (d *Deck) insertSlide(op docedit.Op, needs map[string]docedit.SlotNeeds) {
	pos := -1
	for i, id := range d.order {
		if id == op.Anchor {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}

	need := needs[strings.ToLower(op.NewRef)]

	donorID := 0
	if op.LayoutLikeSID != 0 {
		if _, ok := d.slides[op.LayoutLikeSID]; ok {
			donorID = op.LayoutLikeSID
		}
	}
	if donorID == 0 {
		donorID, _ = resolveDonor(d.order, op.Anchor, op.Kind)
	}
	layout := d.pickLayout(donorID, need.Title, need.Body)

	slide, err := d.newSlideFromLayout(layout)
	if err != nil {
		return
	}

	at := pos
	if op.Kind == docedit.OpInsertAfter {
		at = pos + 1
	}
	sldId := etree.NewElement("p:sldId")
	sldId.CreateAttr("id", strconv.Itoa(slide.ID))
	sldId.CreateAttr("r:id", slide.RelID)
	if at >= len(d.sldIdLst.SelectElements("p:sldId")) {
		d.sldIdLst.AddChild(sldId)
	} else {
		existing := d.sldIdLst.SelectElements("p:sldId")[at]
		d.sldIdLst.InsertChildAt(existing.Index(), sldId)
	}

	d.order = append(d.order, 0)
	copy(d.order[at+1:], d.order[at:])
	d.order[at] = slide.ID
	d.slides[slide.ID] = slide
	if op.NewRef != "" {
		d.newRefs[strings.ToLower(op.NewRef)] = slide.ID
	}
}

// newSlideFromLayout creates a slide part seeded from a layout: its
// content placeholders are cloned with emptied text bodies so the new
// slide inherits position and typography, while slide-number, footer
// and date placeholders stay behind.
func (d *Deck) newSlideFromLayout(layoutPart string) (*Slide, error) {
	partName := d.nextSlidePartName()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("p:sld")
	root.CreateAttr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	root.CreateAttr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")
	root.CreateAttr("xmlns:p", "http://schemas.openxmlformats.org/presentationml/2006/main")
	cSld := root.CreateElement("p:cSld")
	tree := cSld.CreateElement("p:spTree")

	nv := tree.CreateElement("p:nvGrpSpPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", "1")
	cNvPr.CreateAttr("name", "")
	nv.CreateElement("p:cNvGrpSpPr")
	nv.CreateElement("p:nvPr")
	grpSpPr := tree.CreateElement("p:grpSpPr")
	xfrm := grpSpPr.CreateElement("a:xfrm")
	for _, tag := range []string{"a:off", "a:chOff"} {
		el := xfrm.CreateElement(tag)
		el.CreateAttr("x", "0")
		el.CreateAttr("y", "0")
	}
	for _, tag := range []string{"a:ext", "a:chExt"} {
		el := xfrm.CreateElement(tag)
		el.CreateAttr("cx", "0")
		el.CreateAttr("cy", "0")
	}

	nextID := 2
	if layoutPart != "" {
		if layoutDoc, err := d.pkg.XML(layoutPart); err == nil {
			if layoutTree := layoutDoc.FindElement("//p:spTree"); layoutTree != nil {
				for _, sp := range layoutTree.SelectElements("p:sp") {
					t, ok := placeholderType(sp)
					if !ok {
						continue
					}
					switch t {
					case "sldNum", "ftr", "dt":
						continue
					}
					clone := sp.Copy()
					if id := clone.FindElement(".//p:cNvPr"); id != nil {
						id.CreateAttr("id", strconv.Itoa(nextID))
						nextID++
					}
					if tb := txBody(clone); tb != nil {
						clearParagraphs(tb)
						tb.CreateElement("a:p")
					}
					tree.AddChild(clone)
				}
			}
		}
	}

	root.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")

	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	d.pkg.SetPart(partName, raw)
	if err := d.pkg.EnsureOverride("/"+partName, ctSlide); err != nil {
		return nil, err
	}

	slideRels, err := d.pkg.Rels(partName)
	if err != nil {
		return nil, err
	}
	if layoutPart != "" {
		opc.AddRelationship(slideRels, opc.NextRelID(slideRels), relTypeSlideLayout,
			"../"+strings.TrimPrefix(layoutPart, "ppt/"))
	}

	presRels, err := d.pkg.Rels(presentationPart)
	if err != nil {
		return nil, err
	}
	relID := opc.NextRelID(presRels)
	opc.AddRelationship(presRels, relID, relTypeSlide, strings.TrimPrefix(partName, "ppt/"))

	slideDoc, err := d.pkg.XML(partName)
	if err != nil {
		return nil, err
	}
	return &Slide{
		ID:       d.nextSlideID(),
		RelID:    relID,
		PartName: partName,
		doc:      slideDoc,
	}, nil
}

// deleteSlide drops a slide from the order list, the relationship set
// and the package. Unknown ids are no-ops.
func (d *Deck) deleteSlide(sid int) {
	slide, ok := d.slides[sid]
	if !ok {
		return
	}
	for _, el := range d.sldIdLst.SelectElements("p:sldId") {
		if el.SelectAttrValue("id", "") == strconv.Itoa(sid) {
			d.sldIdLst.RemoveChild(el)
			break
		}
	}
	if rels, err := d.pkg.Rels(presentationPart); err == nil {
		opc.RemoveRelationship(rels, slide.RelID)
	}
	d.pkg.RemovePart(slide.PartName)
	d.pkg.RemovePart(opc.RelsPath(slide.PartName))

	for i, id := range d.order {
		if id == sid {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	delete(d.slides, sid)
}

func (d *Deck) applyContentEdit(edit docedit.ContentEdit) {
	target, ok := docedit.ParseTarget(edit.Target)
	if !ok {
		return
	}
	switch target.Kind {
	case docedit.TargetSlideShape:
		slide, ok := d.slides[target.Slide]
		if !ok {
			return
		}
		sp := slide.shapeByID(target.Shape)
		if sp == nil {
			return
		}
		if tbl := tableOf(sp); tbl != nil {
			if matrix, isMatrix := edit.Value.Matrix(); isMatrix {
				setTableMatrix(tbl, matrix)
				return
			}
		}
		if tb := txBody(sp); tb != nil {
			setTextWithRuns(tb, edit.Value)
		}
	case docedit.TargetNewRefSlot:
		sid, ok := d.newRefs[target.Ref]
		if !ok {
			return
		}
		slide, ok := d.slides[sid]
		if !ok {
			return
		}
		if target.Slot == "table" {
			if matrix, isMatrix := edit.Value.Matrix(); isMatrix {
				d.addTableFromMatrix(slide, matrix)
			}
			return
		}
		if tb := d.ensureSlotTextbox(slide, target.Slot); tb != nil {
			setPlainLines(tb, edit.Value.Lines())
		}
	}
}
