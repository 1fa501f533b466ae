package pptx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

type shapeItem struct {
	ShapeIdx   int        `json:"shape_idx"`
	ShapeID    int        `json:"shape_id"`
	IdxKey     string     `json:"idx_key"`
	IDKey      string     `json:"id_key"`
	Kind       string     `json:"kind"`
	Paragraphs []string   `json:"paragraphs,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
}

type slideItem struct {
	Index   int         `json:"index"`
	SlideID int         `json:"slide_id"`
	IDKey   string      `json:"id_key"`
	Title   string      `json:"title"`
	Shapes  []shapeItem `json:"shapes"`
}

// Structure builds the unified snapshot: one entry per slide carrying
// its shapes with kind, id keys and text content. Unlike the
// paragraph family, slide and shape ids come from the container
// itself and stay stable across reloads.
func (d *Deck) Structure(fileName, fileID string) *docedit.Structure {
	s := docedit.NewStructure(fileName, fileID, "pptx")
	s.SlideIDOrder = d.Order()

	for slideIdx, sid := range d.order {
		slide := d.slides[sid]
		title := slide.titleShape()
		item := slideItem{
			Index:   slideIdx,
			SlideID: sid,
			IDKey:   fmt.Sprintf("sid:%d", sid),
			Shapes:  []shapeItem{},
		}
		if title != nil {
			if tb := txBody(title); tb != nil {
				item.Title = strings.Join(bodyText(tb), "\n")
			}
		}

		for shapeIdx, sp := range slide.shapes() {
			id := shapeID(sp)
			shape := shapeItem{
				ShapeIdx: shapeIdx,
				ShapeID:  id,
				IdxKey:   fmt.Sprintf("s%d/sh%d", slideIdx, shapeIdx),
				IDKey:    fmt.Sprintf("sid:%d/shid:%d", sid, id),
			}
			switch {
			case sp.Tag == "pic":
				shape.Kind = "image"
			case tableOf(sp) != nil:
				shape.Kind = "table"
				shape.Rows = tableRows(sp)
			default:
				tb := txBody(sp)
				if tb == nil {
					continue
				}
				if sp == title {
					shape.Kind = "title"
				} else {
					shape.Kind = "textbox"
				}
				shape.Paragraphs = bodyText(tb)
			}
			item.Shapes = append(item.Shapes, shape)
		}
		s.Body = append(s.Body, item)
	}
	return s
}

func tableRows(sp *etree.Element) [][]string {
	tbl := tableOf(sp)
	if tbl == nil {
		return nil
	}
	var rows [][]string
	for _, tr := range tbl.SelectElements("a:tr") {
		var row []string
		for _, tc := range tr.SelectElements("a:tc") {
			text := ""
			if tb := tc.SelectElement("a:txBody"); tb != nil {
				text = strings.Join(bodyText(tb), "\n")
			}
			row = append(row, text)
		}
		rows = append(rows, row)
	}
	return rows
}
