package docx

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/fileforge/fileforge-cli/internal/docedit"
)

// Review appends a visible reviewer note to each addressed paragraph.
// Integer indices are 0-based over every body paragraph, empty ones
// included; "pid:" keys resolve through the non-empty arena. Notes
// with unresolvable targets are skipped.
func (d *Document) Review(notes []docedit.Note) {
	all := d.allParagraphs()
	for _, note := range notes {
		if note.HasPos {
			if note.Pos >= 0 && note.Pos < len(all) {
				annotate(all[note.Pos], note.Comment)
			}
			continue
		}
		target, ok := docedit.ParseTarget(note.Key)
		if !ok || target.Kind != docedit.TargetParagraph {
			continue
		}
		if p, ok := d.paras[target.Para]; ok {
			annotate(p, note.Comment)
		}
	}
}

func annotate(p *etree.Element, comment string) {
	writeRun(p, nil, fmt.Sprintf("  [AI Comment: %s]", comment))
}
