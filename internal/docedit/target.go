package docedit

import (
	"regexp"
	"strconv"
	"strings"
)

// TargetKind classifies a parsed reference key.
type TargetKind int

const (
	// TargetParagraph addresses a paragraph: "pid:<id>".
	TargetParagraph TargetKind = iota
	// TargetTableCell addresses a table cell: "tid:<id>/cid:<id>".
	TargetTableCell
	// TargetSlide addresses a whole slide: "sid:<id>".
	TargetSlide
	// TargetSlideShape addresses a shape: "sid:<id>/shid:<id>".
	TargetSlideShape
	// TargetNewRef addresses a unit created earlier in the batch: "nK".
	TargetNewRef
	// TargetNewRefSlot addresses a slot on a created slide:
	// "nK:slot:title|body|table".
	TargetNewRefSlot
	// TargetSheetCell addresses a spreadsheet cell: "A1".
	TargetSheetCell
)

// Target is a parsed reference key.
type Target struct {
	Kind    TargetKind
	Para    int    // TargetParagraph
	Table   int    // TargetTableCell
	Cell    int    // TargetTableCell
	Slide   int    // TargetSlide, TargetSlideShape
	Shape   int    // TargetSlideShape
	Ref     string // TargetNewRef, TargetNewRefSlot ("nK", lowercased)
	Slot    string // TargetNewRefSlot (title|body|table)
	CellRef string // TargetSheetCell, normalized upper-case
}

var (
	reParagraph  = regexp.MustCompile(`(?i)^pid:(\d+)$`)
	reTableCell  = regexp.MustCompile(`(?i)^tid:(\d+)/cid:(\d+)$`)
	reSlide      = regexp.MustCompile(`(?i)^sid:(\d+)$`)
	reSlideShape = regexp.MustCompile(`(?i)^sid:(\d+)/shid:(\d+)$`)
	reNewRef     = regexp.MustCompile(`(?i)^(n\d+)$`)
	reNewRefSlot = regexp.MustCompile(`(?i)^(n\d+):slot:(title|body|table)$`)
	reSheetCell  = regexp.MustCompile(`^[A-Za-z]+[0-9]+$`)
)

// ParseTarget parses a reference key. Unknown formats return false; the
// caller treats them as unresolvable (silent no-op).
func ParseTarget(s string) (Target, bool) {
	s = strings.TrimSpace(s)
	if m := reParagraph.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetParagraph, Para: atoi(m[1])}, true
	}
	if m := reTableCell.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetTableCell, Table: atoi(m[1]), Cell: atoi(m[2])}, true
	}
	if m := reSlideShape.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetSlideShape, Slide: atoi(m[1]), Shape: atoi(m[2])}, true
	}
	if m := reSlide.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetSlide, Slide: atoi(m[1])}, true
	}
	if m := reNewRefSlot.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetNewRefSlot, Ref: strings.ToLower(m[1]), Slot: strings.ToLower(m[2])}, true
	}
	if m := reNewRef.FindStringSubmatch(s); m != nil {
		return Target{Kind: TargetNewRef, Ref: strings.ToLower(m[1])}, true
	}
	if reSheetCell.MatchString(s) {
		return Target{Kind: TargetSheetCell, CellRef: strings.ToUpper(s)}, true
	}
	return Target{}, false
}

// SlotNeeds records which placeholder slots the content edits for one
// symbolic reference will require.
type SlotNeeds struct {
	Title bool
	Body  bool
}

var reSlotNeed = regexp.MustCompile(`(?i)^(n\d+):slot:(title|body)$`)

// CollectSlotNeeds scans content-edit targets for "nK:slot:title|body"
// keys and returns the required slot set per symbolic reference. Table
// slots do not influence layout choice, matching the donor resolver's
// contract.
func CollectSlotNeeds(edits []ContentEdit) map[string]SlotNeeds {
	needs := make(map[string]SlotNeeds)
	for _, e := range edits {
		m := reSlotNeed.FindStringSubmatch(strings.TrimSpace(e.Target))
		if m == nil {
			continue
		}
		ref := strings.ToLower(m[1])
		n := needs[ref]
		if strings.EqualFold(m[2], "title") {
			n.Title = true
		} else {
			n.Body = true
		}
		needs[ref] = n
	}
	return needs
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
