package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

// StyleInfo is the first-run formatting summary included with every
// paragraph in a structure snapshot.
type StyleInfo struct {
	FontName  string `json:"font_name,omitempty"`
	FontSize  string `json:"font_size,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Color     string `json:"color,omitempty"`
}

type paragraphItem struct {
	Index     int       `json:"index"`
	IDKey     string    `json:"id_key"`
	Type      string    `json:"type"`
	Style     string    `json:"style"`
	StyleInfo StyleInfo `json:"style_info"`
	Text      string    `json:"text"`
}

type cellItem struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	IDKey  string `json:"id_key"`
	Text   string `json:"text"`
}

type tableItem struct {
	Index   int          `json:"index"`
	IDKey   string       `json:"id_key"`
	Type    string       `json:"type"`
	Style   string       `json:"style"`
	TableID int          `json:"table_id"`
	Rows    int          `json:"rows"`
	Columns int          `json:"columns"`
	Cells   [][]cellItem `json:"cells"`
}

// Structure builds the unified snapshot: paragraphs first in document
// order, then tables with their full cell grids. The index keeps
// counting across both so callers see one sequence.
func (d *Document) Structure(fileName, fileID string) *docedit.Structure {
	s := docedit.NewStructure(fileName, fileID, "docx")

	pidOf := make(map[*etree.Element]int, len(d.paras))
	for pid, p := range d.paras {
		pidOf[p] = pid
	}

	index := 0
	for _, p := range d.body.SelectElements("w:p") {
		pid, ok := pidOf[p]
		if !ok {
			continue
		}
		index++
		styleID := paragraphStyleID(p)
		style := d.styleName(styleID)
		kind := "paragraph"
		if strings.HasPrefix(style, "Heading") {
			kind = "heading"
		}
		s.Body = append(s.Body, paragraphItem{
			Index:     index,
			IDKey:     "pid:" + strconv.Itoa(pid),
			Type:      kind,
			Style:     style,
			StyleInfo: firstRunStyle(p),
			Text:      strings.TrimSpace(paragraphText(p)),
		})
	}

	for tableNo, tid := range d.tableOrder {
		tbl := d.tables[tid]
		index++
		item := tableItem{
			Index:   index,
			IDKey:   "tid:" + strconv.Itoa(tid),
			Type:    "table",
			Style:   "Table",
			TableID: tableNo,
		}
		cellIDs := d.cellsOf[tid]
		pos := 0
		for rowIdx, row := range tbl.SelectElements("w:tr") {
			var rowData []cellItem
			for colIdx, tc := range row.SelectElements("w:tc") {
				cid := 0
				if pos < len(cellIDs) {
					cid = cellIDs[pos]
				}
				pos++
				rowData = append(rowData, cellItem{
					Row:    rowIdx,
					Column: colIdx,
					IDKey:  "tid:" + strconv.Itoa(tid) + "/cid:" + strconv.Itoa(cid),
					Text:   strings.TrimSpace(cellText(tc)),
				})
			}
			item.Cells = append(item.Cells, rowData)
		}
		item.Rows = len(item.Cells)
		if item.Rows > 0 {
			item.Columns = len(item.Cells[0])
		}
		s.Body = append(s.Body, item)
	}
	return s
}

// firstRunStyle summarizes the first run's w:rPr the way the snapshot
// reports formatting. Missing properties stay zero.
func firstRunStyle(p *etree.Element) StyleInfo {
	var info StyleInfo
	r := p.SelectElement("w:r")
	if r == nil {
		return info
	}
	rPr := r.SelectElement("w:rPr")
	if rPr == nil {
		return info
	}
	if f := rPr.SelectElement("w:rFonts"); f != nil {
		info.FontName = f.SelectAttrValue("w:ascii", "")
	}
	if sz := rPr.SelectElement("w:sz"); sz != nil {
		// w:sz stores half-points.
		if n, err := strconv.Atoi(sz.SelectAttrValue("w:val", "")); err == nil {
			info.FontSize = strconv.FormatFloat(float64(n)/2, 'f', -1, 64) + "pt"
		}
	}
	info.Bold = toggleOn(rPr.SelectElement("w:b"))
	info.Italic = toggleOn(rPr.SelectElement("w:i"))
	info.Underline = rPr.SelectElement("w:u") != nil
	if c := rPr.SelectElement("w:color"); c != nil {
		info.Color = c.SelectAttrValue("w:val", "")
	}
	return info
}

// toggleOn reads an OOXML boolean property element: present with no
// val (or a truthy val) means on.
func toggleOn(el *etree.Element) bool {
	if el == nil {
		return false
	}
	switch el.SelectAttrValue("w:val", "") {
	case "", "1", "true", "on":
		return true
	}
	return false
}
