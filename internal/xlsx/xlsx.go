// Package xlsx is the sheet family: structure snapshots, cell edits and
// review comments on workbooks, plus the template-based grid writer.
// Everything rides on excelize; there is no hand-rolled container work
// here because spreadsheet cells need no identifier arena, the A1
// reference grid is already stable.
package xlsx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

const reviewerName = "AI Reviewer"

// Workbook wraps an open excelize file.
type Workbook struct {
	f *excelize.File
}

func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

func (w *Workbook) Close() error { return w.f.Close() }

func (w *Workbook) SaveAs(path string) error { return w.f.SaveAs(path) }

func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// activeSheet is the edit and review target; structure snapshots cover
// every sheet but mutations always land on the active one.
func (w *Workbook) activeSheet() string {
	return w.f.GetSheetName(w.f.GetActiveSheetIndex())
}

type cellItem struct {
	Index string `json:"index"`
	Type  string `json:"type"`
	Text  string `json:"text"`
}

// Structure lists every non-empty cell across all sheets as an A1-keyed
// entry.
func (w *Workbook) Structure(fileName, fileID string) *docedit.Structure {
	s := docedit.NewStructure(fileName, fileID, "xlsx")
	for _, sheet := range w.f.GetSheetList() {
		rows, err := w.f.GetRows(sheet)
		if err != nil {
			continue
		}
		for r, row := range rows {
			for c, text := range row {
				if strings.TrimSpace(text) == "" {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					continue
				}
				s.Body = append(s.Body, cellItem{Index: ref, Type: "cell", Text: text})
			}
		}
	}
	return s
}

var reCellRef = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
var reInteger = regexp.MustCompile(`^-?[0-9]+$`)

// normalizeRef maps a target key onto a cell reference: A1-style keys
// pass through upper-cased, a bare integer n addresses row n+1 in
// column A, and anything else lands on A1.
func normalizeRef(target string) string {
	t := strings.ToUpper(strings.TrimSpace(target))
	if reCellRef.MatchString(t) {
		return t
	}
	if reInteger.MatchString(t) {
		var n int
		fmt.Sscanf(t, "%d", &n)
		return fmt.Sprintf("A%d", n+1)
	}
	return "A1"
}

// Apply writes the batch's content edits into the active sheet.
// Structural ops have no spreadsheet meaning and are skipped; a failed
// write falls back to A1 so the value is never dropped.
func (w *Workbook) Apply(batch docedit.Batch, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	if len(batch.Ops) > 0 {
		log.Warn("structural ops ignored for workbook edits", "count", len(batch.Ops))
	}
	sheet := w.activeSheet()
	for _, e := range batch.ContentEdits {
		ref := normalizeRef(e.Target)
		if err := w.f.SetCellValue(sheet, ref, e.Value.Text()); err != nil {
			log.Warn("cell edit failed, writing to A1", "ref", ref, "error", err)
			_ = w.f.SetCellValue(sheet, "A1", e.Value.Text())
		}
	}
}

// commentSize estimates a comment box that shows all of the text:
// width grows with length up to a cap, height from the wrapped line
// count.
func commentSize(text string) (width, height uint) {
	const (
		avgCharWidth = 7
		pxPerLine    = 15
		baseWidth    = 200
		maxWidth     = 500
		minHeight    = 40
	)
	n := len([]rune(text))
	wpx := min(maxWidth, baseWidth+n*2)
	charsPerLine := max(1, wpx/avgCharWidth)
	lines := 0
	for _, paragraph := range strings.Split(text, "\n") {
		pl := len([]rune(paragraph))
		lines += (pl + charsPerLine - 1) / charsPerLine
	}
	return uint(wpx), uint(max(minHeight, lines*pxPerLine))
}

// Review attaches an auto-sized reviewer comment to each noted cell.
// Positional notes address column A rows; unresolvable keys fall back
// to A1, matching the edit path.
func (w *Workbook) Review(notes []docedit.Note, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	sheet := w.activeSheet()
	for _, note := range notes {
		if note.Comment == "" {
			continue
		}
		ref := "A1"
		if note.HasPos {
			ref = fmt.Sprintf("A%d", note.Pos+1)
		} else {
			ref = normalizeRef(note.Key)
		}
		width, height := commentSize(note.Comment)
		cm := excelize.Comment{
			Author: reviewerName,
			Cell:   ref,
			Width:  width,
			Height: height,
			Paragraph: []excelize.RichTextRun{
				{Text: reviewerName + ": ", Font: &excelize.Font{Bold: true}},
				{Text: note.Comment},
			},
		}
		if err := w.f.AddComment(sheet, cm); err != nil {
			log.Warn("comment failed, retrying on A1", "ref", ref, "error", err)
			cm.Cell = "A1"
			if err := w.f.AddComment(sheet, cm); err != nil {
				log.Warn("comment dropped", "error", err)
			}
		}
	}
}
