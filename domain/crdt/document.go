package crdt

import (
	"sort"

	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

// Document is one node's conflict-free mergeable body. State is derived
// from a set of operations, so merging is set union: commutative,
// associative and idempotent, with divergent field writes resolved by
// last-writer-wins and concurrent text edits interleaved
// deterministically.
//
// A Document is not safe for concurrent use. The store manager routes all
// access to one node through one cache entry, which provides the
// single-writer discipline the engine relies on.
type Document struct {
	format byte
	actor  ActorID
	seq    uint64
	clock  uint64

	ops     []Op
	present map[OpID]struct{}
	vv      VersionVector

	fields map[string]Op

	textDirty bool
	elems     []textElem
}

// textElem is one materialized text position, tombstones included.
type textElem struct {
	id      OpID
	value   string
	deleted bool
}

// New produces an empty document. Saving it yields the same bytes every
// time.
func New() *Document {
	return &Document{
		format:  formatVersion,
		actor:   NewActorID(),
		present: make(map[OpID]struct{}),
		vv:      NewVersionVector(),
		fields:  make(map[string]Op),
	}
}

// Load rebuilds a document from saved bytes. The loaded instance gets a
// fresh actor, so its future edits never collide with history. Malformed,
// truncated or foreign bytes fail with a decode error and never leave a
// partially initialized document behind.
func Load(data []byte) (*Document, error) {
	ops, format, err := decodeEnvelope(data, magicDocument)
	if err != nil {
		return nil, err
	}
	doc := New()
	doc.format = format
	for _, op := range ops {
		doc.integrate(op)
	}
	return doc, nil
}

// Save serializes the document canonically: the op set in its total
// order. Two documents holding the same edits save to identical bytes no
// matter how the edits arrived.
func (d *Document) Save() []byte {
	sorted := make([]Op, len(d.ops))
	copy(sorted, d.ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].before(sorted[j]) })
	return encodeEnvelope(sorted, magicDocument, d.format)
}

// Merge applies every op present in other and missing here. Re-merging
// the same document is a no-op. The only failure is a cross-incompatible
// format, which is reported, never dropped.
func (d *Document) Merge(other *Document) error {
	if other == nil || other == d {
		return nil
	}
	if other.format != d.format {
		return pkgerrors.NewVersionMismatchError(int(other.format), int(d.format))
	}
	for _, op := range other.ops {
		d.integrate(op)
	}
	return nil
}

// Heads captures the document's current position marker.
func (d *Document) Heads() VersionVector {
	return d.vv.Clone()
}

// DiffSince encodes the ops not yet covered by the marker, for transfer.
// The marker must have been captured from the document that will receive
// the changes; markers from unrelated documents can skip history.
func (d *Document) DiffSince(marker VersionVector) []byte {
	var changed []Op
	for _, op := range d.ops {
		if !marker.Covers(op.ID) {
			changed = append(changed, op)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].before(changed[j]) })
	return encodeEnvelope(changed, magicChanges, d.format)
}

// ApplyChanges merges a transferred change-set produced by DiffSince.
func (d *Document) ApplyChanges(data []byte) error {
	ops, format, err := decodeEnvelope(data, magicChanges)
	if err != nil {
		return err
	}
	if format != d.format {
		return pkgerrors.NewVersionMismatchError(int(format), int(d.format))
	}
	for _, op := range ops {
		d.integrate(op)
	}
	return nil
}

// Fork returns an independent copy under a fresh actor. Edits to the two
// copies diverge and merge back conflict-free.
func (d *Document) Fork() *Document {
	doc := New()
	doc.format = d.format
	for _, op := range d.ops {
		doc.integrate(op)
	}
	return doc
}

// OpCount reports the size of the history, for diagnostics.
func (d *Document) OpCount() int {
	return len(d.ops)
}

// newOp allocates the next local op and folds it in.
func (d *Document) newOp(kind, field, value string, origin OpID) Op {
	d.seq++
	d.clock++
	op := Op{
		ID:      OpID{Actor: d.actor, Seq: d.seq},
		Lamport: d.clock,
		Kind:    kind,
		Field:   field,
		Value:   value,
		Origin:  origin,
	}
	d.integrate(op)
	return op
}

// integrate folds one op into the set. Duplicate ops are ignored, which
// is what makes merge idempotent.
func (d *Document) integrate(op Op) {
	if _, ok := d.present[op.ID]; ok {
		return
	}
	d.present[op.ID] = struct{}{}
	d.ops = append(d.ops, op)
	d.vv.Observe(op.ID)
	if op.Lamport > d.clock {
		d.clock = op.Lamport
	}

	switch op.Kind {
	case OpSet:
		if winner, ok := d.fields[op.Field]; !ok || op.wins(winner) {
			d.fields[op.Field] = op
		}
	case OpInsert, OpDelete:
		d.textDirty = true
	}
}

// rebuildText materializes the text order from the op set: elements
// grouped under their origin, siblings newest-first, walked depth-first.
// The result depends only on which ops are present.
func (d *Document) rebuildText() {
	if !d.textDirty {
		return
	}

	children := make(map[OpID][]Op)
	deleted := make(map[OpID]bool)
	total := 0
	for _, op := range d.ops {
		switch op.Kind {
		case OpInsert:
			children[op.Origin] = append(children[op.Origin], op)
			total++
		case OpDelete:
			deleted[op.Origin] = true
		}
	}
	for origin, sibs := range children {
		sort.Slice(sibs, func(i, j int) bool { return sibs[i].wins(sibs[j]) })
		children[origin] = sibs
	}

	elems := make([]textElem, 0, total)
	stack := make([]Op, 0, total)
	pushChildren := func(origin OpID) {
		sibs := children[origin]
		for i := len(sibs) - 1; i >= 0; i-- {
			stack = append(stack, sibs[i])
		}
	}
	pushChildren(OpID{})
	for len(stack) > 0 {
		op := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		elems = append(elems, textElem{id: op.ID, value: op.Value, deleted: deleted[op.ID]})
		pushChildren(op.ID)
	}

	d.elems = elems
	d.textDirty = false
}

// visible returns the live text elements in display order.
func (d *Document) visible() []textElem {
	d.rebuildText()
	out := make([]textElem, 0, len(d.elems))
	for _, e := range d.elems {
		if !e.deleted {
			out = append(out, e)
		}
	}
	return out
}
