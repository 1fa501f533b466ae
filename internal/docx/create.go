package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/opc"
)

// ContentItem is one entry of a structured document request.
type ContentItem struct {
	Type  string     `json:"type"`
	Text  string     `json:"text"`
	Items []string   `json:"items"`
	Data  [][]string `json:"data"`
	Query string     `json:"query"`
}

// ImageFetcher resolves an image query to raw bytes and a format name
// ("png" or "jpeg"). A false return degrades to a placeholder line.
type ImageFetcher func(query string) ([]byte, string, bool)

const emuPerInch = 914400

// Builder assembles a new Word document part by part.
type Builder struct {
	pkg        *opc.Package
	doc        *etree.Document
	body       *etree.Element
	imageCount int
}

// NewBuilder starts from the minimal skeleton package.
func NewBuilder() *Builder {
	pkg := opc.New()
	pkg.SetPart(opc.ContentTypesPart, []byte(skeletonContentTypes))
	pkg.SetPart("_rels/.rels", []byte(skeletonRootRels))
	pkg.SetPart("word/styles.xml", []byte(skeletonStyles))
	pkg.SetPart("word/numbering.xml", []byte(skeletonNumbering))
	pkg.SetPart("word/_rels/document.xml.rels", []byte(skeletonDocRels))
	pkg.SetPart(documentPart, []byte(skeletonDocument))
	doc, _ := pkg.XML(documentPart)
	return &Builder{
		pkg:  pkg,
		doc:  doc,
		body: doc.Root().SelectElement("w:body"),
	}
}

// NewBuilderFromTemplate keeps the template's styles and theme but
// clears its body content, matching how templated generation works.
func NewBuilderFromTemplate(path string) (*Builder, error) {
	pkg, err := opc.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	doc, err := pkg.XML(documentPart)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	body := doc.Root().SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("template has no w:body")
	}
	for _, el := range body.ChildElements() {
		if el.Tag == "p" || el.Tag == "tbl" {
			body.RemoveChild(el)
		}
	}
	return &Builder{pkg: pkg, doc: doc, body: body}, nil
}

// Build renders a title plus the content items in order. fetch may be
// nil, in which case image items degrade to placeholder lines.
func (b *Builder) Build(title string, items []ContentItem, fetch ImageFetcher) {
	if title != "" {
		b.styledParagraph(title, "Title", true)
	}
	for _, item := range items {
		switch item.Type {
		case "title":
			b.styledParagraph(item.Text, "Heading1", true)
		case "subtitle", "heading":
			b.styledParagraph(item.Text, "Heading2", true)
		case "subheading":
			b.styledParagraph(item.Text, "Heading3", false)
		case "list":
			for _, it := range item.Items {
				b.Bullet(it)
			}
		case "bullet":
			b.Bullet(item.Text)
		case "bold":
			b.boldParagraph(item.Text)
		case "table":
			b.Table(item.Data)
		case "image", "image_query":
			b.image(item.Query, fetch)
		default:
			b.Paragraph(item.Text)
		}
	}
}

// newBodyElement appends a body-level element, keeping the trailing
// w:sectPr last as the schema requires.
func (b *Builder) newBodyElement(tag string) *etree.Element {
	el := etree.NewElement(tag)
	if sect := b.body.SelectElement("w:sectPr"); sect != nil {
		b.body.InsertChildAt(sect.Index(), el)
	} else {
		b.body.AddChild(el)
	}
	return el
}

func (b *Builder) image(query string, fetch ImageFetcher) {
	if query == "" {
		return
	}
	if fetch != nil {
		if data, format, ok := fetch(query); ok {
			if err := b.Image(data, format); err == nil {
				return
			}
		}
	}
	b.Paragraph(fmt.Sprintf("[image: %s]", query))
}

// Paragraph appends a plain body paragraph.
func (b *Builder) Paragraph(text string) {
	p := b.newBodyElement("w:p")
	writeRun(p, nil, text)
}

func (b *Builder) styledParagraph(text, style string, center bool) {
	p := b.newBodyElement("w:p")
	pPr := p.CreateElement("w:pPr")
	pPr.CreateElement("w:pStyle").CreateAttr("w:val", style)
	if center {
		pPr.CreateElement("w:jc").CreateAttr("w:val", "center")
	}
	writeRun(p, nil, text)
}

func (b *Builder) boldParagraph(text string) {
	p := b.newBodyElement("w:p")
	props := etree.NewElement("w:rPr")
	props.CreateElement("w:b")
	writeRun(p, props, text)
}

// Bullet appends one bulleted list paragraph.
func (b *Builder) Bullet(text string) {
	p := b.newBodyElement("w:p")
	pPr := p.CreateElement("w:pPr")
	pPr.CreateElement("w:pStyle").CreateAttr("w:val", "ListBullet")
	numPr := pPr.CreateElement("w:numPr")
	numPr.CreateElement("w:ilvl").CreateAttr("w:val", "0")
	numPr.CreateElement("w:numId").CreateAttr("w:val", "1")
	writeRun(p, nil, text)
}

// Table appends a bordered table; the first row is rendered as a bold
// centered header.
func (b *Builder) Table(data [][]string) {
	if len(data) == 0 {
		return
	}
	tbl := b.newBodyElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	borders := tblPr.CreateElement("w:tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		el := borders.CreateElement("w:" + side)
		el.CreateAttr("w:val", "single")
		el.CreateAttr("w:sz", "4")
		el.CreateAttr("w:space", "0")
		el.CreateAttr("w:color", "000000")
	}
	grid := tbl.CreateElement("w:tblGrid")
	for range data[0] {
		grid.CreateElement("w:gridCol")
	}
	for rowIdx, row := range data {
		tr := tbl.CreateElement("w:tr")
		for _, cell := range row {
			tc := tr.CreateElement("w:tc")
			tc.CreateElement("w:tcPr")
			p := tc.CreateElement("w:p")
			var props *etree.Element
			if rowIdx == 0 {
				pPr := p.CreateElement("w:pPr")
				pPr.CreateElement("w:jc").CreateAttr("w:val", "center")
				props = etree.NewElement("w:rPr")
				props.CreateElement("w:b")
			}
			writeRun(p, props, cell)
		}
	}
	// An empty paragraph after a table keeps following content from
	// merging into it.
	b.newBodyElement("w:p")
}

// Image embeds picture bytes inline at 6 inches wide, preserving the
// source aspect ratio. format must be "png" or "jpeg".
func (b *Builder) Image(data []byte, format string) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image has zero dimension")
	}
	ext := "png"
	contentType := "image/png"
	if format == "jpeg" || format == "jpg" {
		ext = "jpeg"
		contentType = "image/jpeg"
	}

	b.imageCount++
	partName := fmt.Sprintf("word/media/image%d.%s", b.imageCount, ext)
	b.pkg.SetPart(partName, data)
	if err := b.pkg.EnsureDefault(ext, contentType); err != nil {
		return err
	}
	rels, err := b.pkg.Rels(documentPart)
	if err != nil {
		return err
	}
	relID := opc.NextRelID(rels)
	opc.AddRelationship(rels,
		relID,
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
		fmt.Sprintf("media/image%d.%s", b.imageCount, ext))

	widthEMU := 6 * emuPerInch
	heightEMU := widthEMU * cfg.Height / cfg.Width

	p := b.newBodyElement("w:p")
	r := p.CreateElement("w:r")
	drawing := r.CreateElement("w:drawing")
	inline := drawing.CreateElement("wp:inline")
	for _, a := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(a, "0")
	}
	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", fmt.Sprintf("%d", widthEMU))
	extent.CreateAttr("cy", fmt.Sprintf("%d", heightEMU))
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", fmt.Sprintf("%d", b.imageCount))
	docPr.CreateAttr("name", fmt.Sprintf("Picture %d", b.imageCount))
	graphic := inline.CreateElement("a:graphic")
	gd := graphic.CreateElement("a:graphicData")
	gd.CreateAttr("uri", "http://schemas.openxmlformats.org/drawingml/2006/picture")
	pic := gd.CreateElement("pic:pic")
	nv := pic.CreateElement("pic:nvPicPr")
	cNvPr := nv.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", fmt.Sprintf("%d", b.imageCount))
	cNvPr.CreateAttr("name", fmt.Sprintf("Picture %d", b.imageCount))
	nv.CreateElement("pic:cNvPicPr")
	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", relID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")
	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ex := xfrm.CreateElement("a:ext")
	ex.CreateAttr("cx", fmt.Sprintf("%d", widthEMU))
	ex.CreateAttr("cy", fmt.Sprintf("%d", heightEMU))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
	return nil
}

// Bytes serializes the built package.
func (b *Builder) Bytes() ([]byte, error) {
	b.pkg.SetXML(documentPart, b.doc)
	return b.pkg.Bytes()
}

// Save writes the built package to path.
func (b *Builder) Save(path string) error {
	b.pkg.SetXML(documentPart, b.doc)
	return b.pkg.Save(path)
}

// FromMarkdown converts loose markdown into structured content items:
// headings by level, bullets, bold lines, plain paragraphs.
func FromMarkdown(md string) []ContentItem {
	var items []ContentItem
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "#### "):
			items = append(items, ContentItem{Type: "subheading", Text: strings.TrimSpace(line[5:])})
		case strings.HasPrefix(line, "### "):
			items = append(items, ContentItem{Type: "subheading", Text: strings.TrimSpace(line[4:])})
		case strings.HasPrefix(line, "## "):
			items = append(items, ContentItem{Type: "heading", Text: strings.TrimSpace(line[3:])})
		case strings.HasPrefix(line, "# "):
			items = append(items, ContentItem{Type: "title", Text: strings.TrimSpace(line[2:])})
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			items = append(items, ContentItem{Type: "bullet", Text: strings.TrimSpace(line[2:])})
		case strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") && len(line) > 4:
			items = append(items, ContentItem{Type: "bold", Text: strings.TrimSpace(line[2 : len(line)-2])})
		default:
			items = append(items, ContentItem{Type: "paragraph", Text: line})
		}
	}
	return items
}

const (
	nsWordML  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsOfficeR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsDrawWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsDrawA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsDrawPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
)

var skeletonDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + nsWordML + `" xmlns:r="` + nsOfficeR + `" xmlns:wp="` + nsDrawWP + `" xmlns:a="` + nsDrawA + `" xmlns:pic="` + nsDrawPic + `"><w:body><w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr></w:body></w:document>`

const skeletonContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/><Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/></Types>`

const skeletonRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const skeletonDocRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/></Relationships>`

var skeletonStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="` + nsWordML + `"><w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style><w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="56"/></w:rPr></w:style><w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="Heading 1"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style><w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="Heading 2"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style><w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="Heading 3"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style><w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/><w:basedOn w:val="Normal"/></w:style></w:styles>`

var skeletonNumbering = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="` + nsWordML + `"><w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/><w:lvlText w:val="&#8226;"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum><w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num></w:numbering>`
