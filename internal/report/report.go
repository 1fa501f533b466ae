// Package report builds the change summary embedded in edit responses:
// per-target before/after text with a compact inline diff.
package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change is one edited target.
type Change struct {
	Target string `json:"target"`
	Before string `json:"before"`
	After  string `json:"after"`
	Diff   string `json:"diff"`
}

// Summary accumulates changes in application order.
type Summary struct {
	changes []Change
}

func New() *Summary { return &Summary{} }

// Record captures one target's text transition. Unchanged text is
// dropped from the summary.
func (s *Summary) Record(target, before, after string) {
	if before == after {
		return
	}
	s.changes = append(s.changes, Change{
		Target: target,
		Before: before,
		After:  after,
		Diff:   InlineDiff(before, after),
	})
}

// Changes returns the recorded transitions.
func (s *Summary) Changes() []Change { return s.changes }

// Len is the number of targets that actually changed.
func (s *Summary) Len() int { return len(s.changes) }

// InlineDiff renders a single-line diff with removed spans in [-...-]
// and added spans in {+...+}.
func InlineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		}
	}
	return b.String()
}
