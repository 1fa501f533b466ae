package docedit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Note is one review comment, decoded from [index, comment] or
// {"index": ..., "comment": ...}. The index is either an integer
// position (0-based unit index) or a reference key string ("pid:3",
// "sid:257", "A1").
type Note struct {
	Pos     int
	HasPos  bool
	Key     string
	Comment string
}

func (n *Note) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wire struct {
			Index   json.RawMessage `json:"index"`
			Comment string          `json:"comment"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return err
		}
		var key string
		if err := json.Unmarshal(wire.Index, &key); err == nil {
			n.Key = strings.TrimSpace(key)
		} else {
			n.Pos = intFrom(wire.Index)
			n.HasPos = true
		}
		n.Comment = wire.Comment
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("review note needs [index, comment]")
	}
	var key string
	if err := json.Unmarshal(raw[0], &key); err == nil {
		n.Key = strings.TrimSpace(key)
	} else {
		n.Pos = intFrom(raw[0])
		n.HasPos = true
	}
	return json.Unmarshal(raw[1], &n.Comment)
}

// Structure is the unified document snapshot returned to the caller.
// Body items are family-specific (paragraphs, tables, cells, slides).
type Structure struct {
	FileName     string `json:"file_name"`
	FileID       string `json:"file_id"`
	Type         string `json:"type"`
	SlideIDOrder []int  `json:"slide_id_order"`
	Body         []any  `json:"body"`
}

// NewStructure returns an empty snapshot for the given file.
func NewStructure(fileName, fileID, fileType string) *Structure {
	return &Structure{
		FileName:     fileName,
		FileID:       fileID,
		Type:         fileType,
		SlideIDOrder: []int{},
		Body:         []any{},
	}
}
