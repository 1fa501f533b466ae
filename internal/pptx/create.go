package pptx

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/opc"
)

// SlideSpec is one requested content slide.
type SlideSpec struct {
	Title         string   `json:"title"`
	Content       []string `json:"content"`
	ImageQuery    string   `json:"image_query"`
	ImagePosition string   `json:"image_position"`
	ImageSize     string   `json:"image_size"`
}

// ImageFetcher resolves an image query to raw bytes and a format name
// ("png" or "jpeg"). A false return means no image is placed.
type ImageFetcher func(query string) ([]byte, string, bool)

// CreateFromTemplate builds a presentation from a template deck: the
// template's first slide becomes the title slide, every other slide
// is dropped, and content slides are appended using the layout the
// template's second slide was based on (or the first slide's layout
// for single-slide templates). Building a deck without a template is
// not supported; masters, layouts and themes always come from one.
func CreateFromTemplate(templatePath, title string, slides []SlideSpec, fetch ImageFetcher) (*Deck, error) {
	d, err := LoadFile(templatePath)
	if err != nil {
		return nil, err
	}
	if len(d.order) == 0 {
		return nil, fmt.Errorf("template has no slides")
	}

	contentLayout := ""
	if len(d.order) > 1 {
		contentLayout = d.layoutOf(d.slides[d.order[1]])
	}
	if contentLayout == "" {
		contentLayout = d.layoutOf(d.slides[d.order[0]])
	}

	// deleteSlide rewrites d.order in place, so iterate over a copy.
	for _, sid := range d.Order()[1:] {
		d.deleteSlide(sid)
	}

	titleSlide := d.slides[d.order[0]]
	if tb := d.ensureSlotTextbox(titleSlide, "title"); tb != nil {
		setPlainLines(tb, []string{title})
		applyRunSize(tb, 2800, true)
	}

	for _, spec := range slides {
		slide, err := d.newSlideFromLayout(contentLayout)
		if err != nil {
			return nil, err
		}
		sldId := etree.NewElement("p:sldId")
		sldId.CreateAttr("id", strconv.Itoa(slide.ID))
		sldId.CreateAttr("r:id", slide.RelID)
		d.sldIdLst.AddChild(sldId)
		d.order = append(d.order, slide.ID)
		d.slides[slide.ID] = slide

		if tb := d.ensureSlotTextbox(slide, "title"); tb != nil {
			setPlainLines(tb, []string{spec.Title})
			applyRunSize(tb, 2800, true)
		}

		if spec.ImageQuery != "" && fetch != nil {
			if data, format, ok := fetch(spec.ImageQuery); ok {
				d.placeImage(slide, data, format, spec.ImagePosition, spec.ImageSize)
			}
		}

		if tb := d.ensureSlotTextbox(slide, "body"); tb != nil {
			setPlainLines(tb, spec.Content)
			size := dynamicFontSize(spec.Content, 400, 24, 12)
			applyRunSize(tb, size*100, false)
		}
	}
	return d, nil
}

// applyRunSize sets font size (in hundredths of a point) and optional
// bold on every run in a text body.
func applyRunSize(tb *etree.Element, sz int, bold bool) {
	for _, r := range tb.FindElements(".//a:r") {
		rPr := r.SelectElement("a:rPr")
		if rPr == nil {
			rPr = etree.NewElement("a:rPr")
			r.InsertChildAt(0, rPr)
		}
		rPr.CreateAttr("sz", strconv.Itoa(sz))
		if bold {
			rPr.CreateAttr("b", "1")
		}
	}
}

// dynamicFontSize shrinks the base size proportionally once the total
// content length exceeds maxChars, floored at minSize points.
func dynamicFontSize(lines []string, maxChars, base, minSize int) int {
	total := 0
	for _, line := range lines {
		total += len([]rune(line))
	}
	if maxChars <= 0 || total <= maxChars {
		return base
	}
	size := base * maxChars / total
	if size < minSize {
		return minSize
	}
	return size
}

var reMediaPart = regexp.MustCompile(`^ppt/media/image(\d+)\.`)

// placeImage drops picture bytes onto the slide at a position keyed
// by the requested corner and size.
func (d *Deck) placeImage(s *Slide, data []byte, format, position, size string) {
	var wIn, hIn float64
	switch size {
	case "small":
		wIn, hIn = 2.0, 1.5
	case "large":
		wIn, hIn = 4.0, 3.0
	default:
		wIn, hIn = 3.0, 2.0
	}

	slideW, slideH := d.slideSize()
	margin := inches(0.5)
	topBand := inches(1.2)
	w, h := int(wIn*emuPerInch), int(hIn*emuPerInch)

	var left, top int
	switch position {
	case "left":
		left, top = margin, topBand
	case "top":
		left, top = slideW-margin-w, topBand
	case "bottom":
		left, top = slideW-margin-w, slideH-margin-h
	default: // right
		left, top = slideW-margin-w, topBand
	}
	d.addPicture(s, data, format, left, top, w, h)
}

// addPicture registers the media part, its relationship and the p:pic
// shape referencing it.
func (d *Deck) addPicture(s *Slide, data []byte, format string, left, top, width, height int) {
	ext := "png"
	contentType := "image/png"
	if format == "jpeg" || format == "jpg" {
		ext = "jpeg"
		contentType = "image/jpeg"
	}
	max := 0
	for _, name := range d.pkg.PartsWithPrefix("ppt/media/") {
		if m := reMediaPart.FindStringSubmatch(name); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > max {
				max = n
			}
		}
	}
	partName := fmt.Sprintf("ppt/media/image%d.%s", max+1, ext)
	d.pkg.SetPart(partName, data)
	if err := d.pkg.EnsureDefault(ext, contentType); err != nil {
		return
	}
	rels, err := d.pkg.Rels(s.PartName)
	if err != nil {
		return
	}
	relID := opc.NextRelID(rels)
	opc.AddRelationship(rels, relID, relTypeImage, fmt.Sprintf("../media/image%d.%s", max+1, ext))

	tree := s.spTree()
	if tree == nil {
		return
	}
	id := s.nextShapeID()
	pic := tree.CreateElement("p:pic")
	nv := pic.CreateElement("p:nvPicPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", fmt.Sprintf("Picture %d", id))
	nv.CreateElement("p:cNvPicPr")
	nv.CreateElement("p:nvPr")
	fill := pic.CreateElement("p:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", relID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")
	spPr := pic.CreateElement("p:spPr")
	writeXfrm(spPr, left, top, width, height)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}
