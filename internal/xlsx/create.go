package xlsx

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Create builds a workbook from a 2D grid, optionally seeded from a
// template file. The first data row is treated as a header (bold), the
// data range gets an auto-filter, and columns are sized to their
// content. A template that fails to load degrades to a blank workbook
// rather than failing the call.
func Create(data [][]string, templatePath, title string, log *slog.Logger) (*Workbook, error) {
	if log == nil {
		log = slog.Default()
	}
	var f *excelize.File
	if templatePath != "" {
		var err error
		f, err = excelize.OpenFile(templatePath)
		if err != nil {
			log.Warn("workbook template failed to load", "path", templatePath, "error", err)
			f = excelize.NewFile()
		}
	} else {
		f = excelize.NewFile()
	}
	w := &Workbook{f: f}
	sheet := w.activeSheet()

	if title != "" {
		sheet = applyTitle(f, sheet, title)
	}

	if len(data) == 0 {
		return w, nil
	}
	cols := len(data[0])

	// The template cell at the origin carries the border/fill styling
	// for the whole data range.
	templateStyle, _ := f.GetCellStyle(sheet, "A1")

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	// Pad past the data so residual template content does not bleed
	// into the result.
	rowsCount := max(len(data)+10, 50)
	colsCount := max(cols+5, 20)
	for r := 0; r < rowsCount; r++ {
		for c := 0; c < colsCount; c++ {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			if r < len(data) && c < cols {
				if err := f.SetCellValue(sheet, ref, data[r][c]); err != nil {
					return nil, fmt.Errorf("write %s: %w", ref, err)
				}
				continue
			}
			_ = f.SetCellValue(sheet, ref, nil)
			_ = f.SetCellStyle(sheet, ref, ref, 0)
		}
	}

	endRef, err := excelize.CoordinatesToCellName(cols, len(data))
	if err != nil {
		return nil, err
	}
	if templateStyle != 0 {
		_ = f.SetCellStyle(sheet, "A1", endRef, templateStyle)
	}
	headerEnd, _ := excelize.CoordinatesToCellName(cols, 1)
	if err := f.SetCellStyle(sheet, "A1", headerEnd, boldStyle); err != nil {
		return nil, fmt.Errorf("bold header: %w", err)
	}
	if err := f.AutoFilter(sheet, "A1:"+endRef, nil); err != nil {
		log.Warn("auto-filter failed", "range", "A1:"+endRef, "error", err)
	}
	autosizeColumns(f, sheet, data)
	return w, nil
}

// applyTitle renames the sheet to a sanitized form of the title and, if
// a template cell contains the word "title", replaces it with the real
// one.
func applyTitle(f *excelize.File, sheet, title string) string {
	safe := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return r
		}
		return -1
	}, title))
	if len(safe) > 31 {
		safe = safe[:31]
	}
	if safe != "" && safe != sheet {
		if err := f.SetSheetName(sheet, safe); err == nil {
			sheet = safe
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return sheet
	}
	for r, row := range rows {
		for c, text := range row {
			if !strings.Contains(strings.ToLower(text), "title") {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			_ = f.SetCellValue(sheet, ref, title)
			if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
				_ = f.SetCellStyle(sheet, ref, ref, style)
			}
			return sheet
		}
	}
	return sheet
}

func autosizeColumns(f *excelize.File, sheet string, data [][]string) {
	if len(data) == 0 {
		return
	}
	for c := 0; c < len(data[0]); c++ {
		maxLen := 0
		for r := range data {
			if c < len(data[r]) {
				if n := len([]rune(data[r][c])); n > maxLen {
					maxLen = n
				}
			}
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			continue
		}
		_ = f.SetColWidth(sheet, name, name, float64(min(maxLen+2, 150)))
	}
}
