package pptx

// resolveDonor picks the slide whose layout seeds a new slide when no
// explicit donor was named. Inserting after the first slide donates
// from the following slide so a title-only opener does not shape a
// body insert; inserting before the last slide donates from the
// preceding one for the same reason. Everything else donates from the
// anchor itself.
func resolveDonor(order []int, anchorID int, kind string) (int, bool) {
	if len(order) == 0 {
		return 0, false
	}
	pos := -1
	for i, id := range order {
		if id == anchorID {
			pos = i
			break
		}
	}
	if pos < 0 {
		if len(order) > 1 {
			return order[1], true
		}
		return order[0], true
	}
	last := len(order) - 1

	if kind == "insert_after" {
		if pos == 0 && pos+1 <= last {
			return order[pos+1], true
		}
		return anchorID, true
	}
	// insert_before
	if pos == last && pos-1 >= 0 {
		return order[pos-1], true
	}
	return anchorID, true
}

// layoutHas reports whether a layout part provides the wanted
// placeholder slots. Title counts title, centered-title and subtitle
// placeholders; body counts body, object and untyped placeholders.
func (d *Deck) layoutHas(layoutPart string, wantTitle, wantBody bool) bool {
	doc, err := d.pkg.XML(layoutPart)
	if err != nil || doc.Root() == nil {
		return false
	}
	hasTitle, hasBody := false, false
	for _, ph := range doc.FindElements("//p:ph") {
		t := ph.SelectAttrValue("type", "")
		if isTitleType(t) {
			hasTitle = true
		}
		if isBodyType(t) {
			hasBody = true
		}
	}
	return (!wantTitle || hasTitle) && (!wantBody || hasBody)
}

// pickLayout resolves the layout for a new slide: the donor's layout
// when it covers the needed slots, else the first layout in the deck
// that does, else the donor's layout regardless. With no donor at all
// the first layout wins.
func (d *Deck) pickLayout(donorID int, needsTitle, needsBody bool) string {
	var donorLayout string
	if donor, ok := d.slides[donorID]; ok {
		donorLayout = d.layoutOf(donor)
	}
	if donorLayout != "" && d.layoutHas(donorLayout, needsTitle, needsBody) {
		return donorLayout
	}
	for _, layout := range d.layoutParts() {
		if d.layoutHas(layout, needsTitle, needsBody) {
			return layout
		}
	}
	if donorLayout != "" {
		return donorLayout
	}
	if layouts := d.layoutParts(); len(layouts) > 0 {
		return layouts[0]
	}
	return ""
}
