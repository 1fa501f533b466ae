// Package docedit defines the JSON wire shapes shared by the three
// document families: edit batches, content values, reference keys and
// review notes. Parsing is deliberately forgiving: a malformed entry
// is dropped rather than failing the whole batch.
package docedit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Batch is one edit request: structural ops followed by content edits.
// The wire form is {"ops":[...],"content_edits":[[target,value],...]};
// a bare JSON array is accepted as content edits only.
type Batch struct {
	Ops          []Op
	ContentEdits []ContentEdit
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		b.Ops = nil
		return json.Unmarshal(trimmed, &b.ContentEdits)
	}
	var wire struct {
		Ops          []Op          `json:"ops"`
		ContentEdits []ContentEdit `json:"content_edits"`
	}
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return err
	}
	b.Ops = wire.Ops
	b.ContentEdits = wire.ContentEdits
	return nil
}

// Structural op kinds.
const (
	OpInsertAfter     = "insert_after"
	OpInsertBefore    = "insert_before"
	OpDeleteParagraph = "delete_paragraph"
	OpDeleteSlide     = "delete_slide"
)

// Op is one structural operation, decoded from a positional array:
// ["insert_after", anchor, "n1", {"layout_like_sid": 257}].
type Op struct {
	Kind          string
	Anchor        int
	NewRef        string
	LayoutLikeSID int
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty op")
	}
	if err := json.Unmarshal(raw[0], &o.Kind); err != nil {
		return fmt.Errorf("op kind: %w", err)
	}
	if len(raw) > 1 {
		o.Anchor = intFrom(raw[1])
	}
	if len(raw) > 2 {
		_ = json.Unmarshal(raw[2], &o.NewRef)
	}
	if len(raw) > 3 {
		var opts map[string]json.RawMessage
		if err := json.Unmarshal(raw[3], &opts); err == nil {
			if v, ok := opts["layout_like_sid"]; ok {
				o.LayoutLikeSID = intFrom(v)
			}
		}
	}
	return nil
}

// IsInsert reports whether the op creates a new unit.
func (o Op) IsInsert() bool {
	return o.Kind == OpInsertAfter || o.Kind == OpInsertBefore
}

// ContentEdit is one [target, value] pair.
type ContentEdit struct {
	Target string
	Value  Value
}

func (e *ContentEdit) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("content edit needs [target, value]")
	}
	if err := json.Unmarshal(raw[0], &e.Target); err != nil {
		// Integer targets occur for sheet documents ("row n" shorthand).
		n := intFrom(raw[0])
		e.Target = fmt.Sprintf("%d", n)
	}
	return e.Value.UnmarshalJSON(raw[1])
}

// Value is a replacement value: plain text, a list of lines, or a 2D
// matrix for tables. Scalars are coerced to text.
type Value struct {
	kind   valueKind
	text   string
	lines  []string
	matrix [][]string
}

type valueKind int

const (
	valueText valueKind = iota
	valueLines
	valueMatrix
)

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case []any:
		if len(val) > 0 {
			if _, nested := val[0].([]any); nested {
				v.kind = valueMatrix
				v.matrix = make([][]string, 0, len(val))
				for _, row := range val {
					cells, _ := row.([]any)
					r := make([]string, 0, len(cells))
					for _, c := range cells {
						r = append(r, scalarText(c))
					}
					v.matrix = append(v.matrix, r)
				}
				return nil
			}
		}
		v.kind = valueLines
		v.lines = make([]string, 0, len(val))
		for _, item := range val {
			v.lines = append(v.lines, scalarText(item))
		}
		return nil
	default:
		v.kind = valueText
		v.text = scalarText(val)
		return nil
	}
}

// Text returns the value as a single string; lines join with newlines.
func (v Value) Text() string {
	switch v.kind {
	case valueLines:
		return strings.Join(v.lines, "\n")
	case valueMatrix:
		var b strings.Builder
		for i, row := range v.matrix {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Join(row, "\t"))
		}
		return b.String()
	default:
		return v.text
	}
}

// Lines returns the value as a list of lines.
func (v Value) Lines() []string {
	switch v.kind {
	case valueLines:
		return v.lines
	case valueMatrix:
		return strings.Split(v.Text(), "\n")
	default:
		return []string{v.text}
	}
}

// IsList reports whether the value was authored as a list.
func (v Value) IsList() bool { return v.kind == valueLines }

// Matrix returns the 2D form and whether the value was a matrix.
func (v Value) Matrix() ([][]string, bool) {
	return v.matrix, v.kind == valueMatrix
}

// TextValue builds a plain-text value (used by generators and tests).
func TextValue(s string) Value { return Value{kind: valueText, text: s} }

// LinesValue builds a list value.
func LinesValue(lines ...string) Value { return Value{kind: valueLines, lines: lines} }

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func intFrom(raw json.RawMessage) int {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
