package crdt

import (
	"sort"
	"strings"
)

// Field and text accessors. Positions are rune offsets into the visible
// text, matching what an editor shows.

// SetField writes a named register. Concurrent writers to the same field
// converge on the last writer.
func (d *Document) SetField(name, value string) {
	d.newOp(OpSet, name, value, OpID{})
}

// Field reads a named register, reporting whether it was ever written.
func (d *Document) Field(name string) (string, bool) {
	op, ok := d.fields[name]
	if !ok {
		return "", false
	}
	return op.Value, true
}

// FieldNames lists the written registers in sorted order.
func (d *Document) FieldNames() []string {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text returns the current visible text.
func (d *Document) Text() string {
	var b strings.Builder
	for _, e := range d.visible() {
		b.WriteString(e.value)
	}
	return b.String()
}

// TextLen returns the visible text length in runes.
func (d *Document) TextLen() int {
	return len(d.visible())
}

// InsertText inserts s at the given rune offset. Offsets out of range
// clamp to the ends.
func (d *Document) InsertText(pos int, s string) {
	if s == "" {
		return
	}
	elems := d.visible()
	if pos < 0 {
		pos = 0
	}
	if pos > len(elems) {
		pos = len(elems)
	}

	origin := OpID{}
	if pos > 0 {
		origin = elems[pos-1].id
	}
	for _, r := range s {
		op := d.newOp(OpInsert, "", string(r), origin)
		origin = op.ID
	}
}

// DeleteText removes count runes starting at the given offset. The range
// clamps to the visible text.
func (d *Document) DeleteText(pos, count int) {
	elems := d.visible()
	if pos < 0 {
		count += pos
		pos = 0
	}
	if pos >= len(elems) || count <= 0 {
		return
	}
	end := pos + count
	if end > len(elems) {
		end = len(elems)
	}

	// Snapshot targets first; tombstoning shifts visible offsets.
	targets := make([]OpID, 0, end-pos)
	for _, e := range elems[pos:end] {
		targets = append(targets, e.id)
	}
	for _, id := range targets {
		d.newOp(OpDelete, "", "", id)
	}
}

// SetText replaces the whole text, expressed as a minimal edit: the
// differing middle is deleted and rewritten while the common prefix and
// suffix keep their identities, so concurrent edits elsewhere interleave
// instead of being clobbered.
func (d *Document) SetText(s string) {
	oldRunes := []rune(d.Text())
	newRunes := []rune(s)

	prefix := 0
	for prefix < len(oldRunes) && prefix < len(newRunes) && oldRunes[prefix] == newRunes[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldRunes)-prefix && suffix < len(newRunes)-prefix &&
		oldRunes[len(oldRunes)-1-suffix] == newRunes[len(newRunes)-1-suffix] {
		suffix++
	}

	if removed := len(oldRunes) - prefix - suffix; removed > 0 {
		d.DeleteText(prefix, removed)
	}
	if inserted := newRunes[prefix : len(newRunes)-suffix]; len(inserted) > 0 {
		d.InsertText(prefix, string(inserted))
	}
}
