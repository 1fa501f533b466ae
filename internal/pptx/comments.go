package pptx

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/opc"
)

const (
	authorsPart    = "ppt/commentAuthors.xml"
	reviewerName   = "AI Reviewer"
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

// AddComment patches a native reviewer comment into the saved archive
// at path. The object model has no comment support, so this works on
// the container directly: author list, per-slide comment part,
// relationship entries and content-type overrides, then an atomic
// rewrite of the whole archive. slideNum is a 1-based deck position,
// resolved to a slide part through the presentation order; x and y
// are EMU.
//
// Not safe for concurrent calls against the same path.
func AddComment(path string, slideNum int, text string, x, y int) error {
	pkg, err := opc.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	authorID, err := ensureAuthor(pkg)
	if err != nil {
		return err
	}

	slidePart, err := slidePartByPos(pkg, slideNum)
	if err != nil {
		return err
	}
	// The comment part is named after the slide part, not the deck
	// position; the two diverge once slides have been inserted.
	partNum := slideNum
	if m := reSlidePart.FindStringSubmatch(slidePart); m != nil {
		partNum, _ = strconv.Atoi(m[1])
	}

	commentPart := fmt.Sprintf("ppt/comments/comment%d.xml", partNum)
	var comments *etree.Document
	if pkg.Has(commentPart) {
		comments, err = pkg.XML(commentPart)
		if err != nil {
			return fmt.Errorf("parse %s: %w", commentPart, err)
		}
	} else {
		comments = pkg.NewXML(commentPart)
		root := comments.CreateElement("p:cmLst")
		root.CreateAttr("xmlns:p", nsPresentation)

		slideRels, err := pkg.Rels(slidePart)
		if err != nil {
			return err
		}
		opc.AddRelationship(slideRels, opc.NextRelID(slideRels), relTypeComments,
			fmt.Sprintf("../comments/comment%d.xml", partNum))
	}

	// Comment indices are per part; max+1 keeps them collision-free.
	nextIdx := 1
	for _, cm := range comments.FindElements("//p:cm") {
		if idx, err := strconv.Atoi(cm.SelectAttrValue("idx", "")); err == nil && idx >= nextIdx {
			nextIdx = idx + 1
		}
	}

	cm := comments.Root().CreateElement("p:cm")
	cm.CreateAttr("authorId", strconv.Itoa(authorID))
	cm.CreateAttr("dt", time.Now().Format("2006-01-02T15:04:05.000"))
	cm.CreateAttr("idx", strconv.Itoa(nextIdx))
	pos := cm.CreateElement("p:pos")
	pos.CreateAttr("x", strconv.Itoa(x))
	pos.CreateAttr("y", strconv.Itoa(y))
	cm.CreateElement("p:text").SetText(text)

	if err := pkg.EnsureOverride("/"+authorsPart, ctCommentAuthors); err != nil {
		return err
	}
	if err := pkg.EnsureOverride("/"+commentPart, ctComments); err != nil {
		return err
	}
	return pkg.Save(path)
}

// ensureAuthor finds or creates the reviewer author record. The same
// name always resolves to the same id; a fresh id never collides with
// existing ones because it is max+1.
func ensureAuthor(pkg *opc.Package) (int, error) {
	if pkg.Has(authorsPart) {
		doc, err := pkg.XML(authorsPart)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", authorsPart, err)
		}
		maxID := -1
		for _, a := range doc.FindElements("//p:cmAuthor") {
			if a.SelectAttrValue("name", "") == reviewerName {
				id, _ := strconv.Atoi(a.SelectAttrValue("id", ""))
				return id, nil
			}
			if id, err := strconv.Atoi(a.SelectAttrValue("id", "")); err == nil && id > maxID {
				maxID = id
			}
		}
		id := maxID + 1
		writeAuthor(doc.Root(), id)
		return id, nil
	}

	doc := pkg.NewXML(authorsPart)
	root := doc.CreateElement("p:cmAuthorLst")
	root.CreateAttr("xmlns:p", nsPresentation)
	writeAuthor(root, 0)

	presRels, err := pkg.Rels(presentationPart)
	if err != nil {
		return 0, err
	}
	opc.AddRelationship(presRels, opc.NextRelID(presRels), relTypeCommentAuthors, "commentAuthors.xml")
	return 0, nil
}

// slidePartByPos resolves a 1-based deck position to its slide part
// name through the presentation order.
func slidePartByPos(pkg *opc.Package, num int) (string, error) {
	pres, err := pkg.XML(presentationPart)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", presentationPart, err)
	}
	root := pres.Root()
	if root == nil {
		return "", fmt.Errorf("%s: empty document", presentationPart)
	}
	lst := root.SelectElement("p:sldIdLst")
	if lst == nil {
		return "", fmt.Errorf("%s: no slide list", presentationPart)
	}
	ids := lst.SelectElements("p:sldId")
	if num < 1 || num > len(ids) {
		return "", fmt.Errorf("slide %d out of range", num)
	}
	rels, err := pkg.Rels(presentationPart)
	if err != nil {
		return "", err
	}
	target := opc.RelTarget(rels, ids[num-1].SelectAttrValue("r:id", ""))
	if target == "" {
		return "", fmt.Errorf("slide %d has no relationship target", num)
	}
	return opc.ResolveTarget(presentationPart, target), nil
}

func writeAuthor(root *etree.Element, id int) {
	a := root.CreateElement("p:cmAuthor")
	a.CreateAttr("id", strconv.Itoa(id))
	a.CreateAttr("name", reviewerName)
	a.CreateAttr("initials", "AI")
	a.CreateAttr("lastIdx", "1")
	a.CreateAttr("clrIdx", strconv.Itoa(id%8))
}

// Review applies review notes to the saved deck at path. Notes are
// grouped per slide and become native comments stacked down the
// margin; if patching a comment fails, a small visible textbox with
// the note text is written instead so the review never disappears.
func Review(path string, notes []docedit.Note, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	d, err := LoadFile(path)
	if err != nil {
		return err
	}
	order := d.Order()

	grouped := make(map[int][]string)
	var slideNums []int
	add := func(num int, text string) {
		if _, seen := grouped[num]; !seen {
			slideNums = append(slideNums, num)
		}
		grouped[num] = append(grouped[num], text)
	}

	for _, note := range notes {
		if note.HasPos {
			if note.Pos >= 0 && note.Pos < len(order) {
				add(note.Pos+1, note.Comment)
			}
			continue
		}
		target, ok := docedit.ParseTarget(note.Key)
		if !ok {
			continue
		}
		switch target.Kind {
		case docedit.TargetSlide, docedit.TargetSlideShape:
			num := 0
			for i, id := range order {
				if id == target.Slide {
					num = i + 1
					break
				}
			}
			if num == 0 {
				continue
			}
			text := note.Comment
			if target.Kind == docedit.TargetSlideShape {
				text = fmt.Sprintf("[Shape %d] %s", target.Shape, note.Comment)
			}
			add(num, text)
		}
	}

	const (
		startX   = 5000
		startY   = 1000
		spacingY = 1500
	)
	for _, num := range slideNums {
		for i, text := range grouped[num] {
			err := AddComment(path, num, "• "+text, startX, startY+i*spacingY)
			if err == nil {
				continue
			}
			log.Warn("native comment failed, writing textbox fallback", "slide", num, "error", err)
			if fbErr := addReviewTextbox(path, num, text); fbErr != nil {
				return fmt.Errorf("review fallback on slide %d: %w", num, fbErr)
			}
		}
	}
	return nil
}

// addReviewTextbox is the degraded path: a plain visible textbox in
// the slide corner carrying the reviewer text.
func addReviewTextbox(path string, slideNum int, text string) error {
	d, err := LoadFile(path)
	if err != nil {
		return err
	}
	slide, ok := d.SlideByPos(slideNum - 1)
	if !ok {
		return fmt.Errorf("slide %d not found", slideNum)
	}
	sp := slide.addTextbox(inches(0.2), inches(0.2), inches(4), inches(1))
	tb := txBody(sp)
	if tb == nil {
		return fmt.Errorf("textbox has no text body")
	}
	clearParagraphs(tb)
	p := tb.CreateElement("a:p")
	r := p.CreateElement("a:r")
	rPr := r.CreateElement("a:rPr")
	rPr.CreateAttr("lang", "en-US")
	rPr.CreateAttr("sz", "1000")
	r.CreateElement("a:t").SetText("AI Reviewer: " + text)
	return d.Save(path)
}
