package crdt

// Op kinds. A document's history is a set of operations; state is a pure
// function of that set, never of arrival order.
const (
	OpSet    = "set" // write a field register
	OpInsert = "ins" // insert one text element after Origin
	OpDelete = "del" // tombstone the text element named by Origin
)

// OpID names one operation: the actor that produced it plus the actor's
// own sequence number, 1-based.
type OpID struct {
	Actor ActorID `json:"a"`
	Seq   uint64  `json:"s"`
}

// IsZero reports the zero OpID, which stands for the head of the text
// sequence when used as an insert origin.
func (id OpID) IsZero() bool {
	return id.Actor == "" && id.Seq == 0
}

// Op is one history entry.
type Op struct {
	ID      OpID   `json:"id"`
	Lamport uint64 `json:"t"`
	Kind    string `json:"k"`
	Field   string `json:"f,omitempty"` // OpSet: register name
	Value   string `json:"v,omitempty"` // OpSet: register value; OpInsert: element text
	Origin  OpID   `json:"o"`           // OpInsert: predecessor; OpDelete: target
}

// wins decides last-writer-wins ordering between two ops: higher Lamport
// time first, then actor id, then sequence. Total and deterministic.
func (o Op) wins(other Op) bool {
	if o.Lamport != other.Lamport {
		return o.Lamport > other.Lamport
	}
	if o.ID.Actor != other.ID.Actor {
		return o.ID.Actor > other.ID.Actor
	}
	return o.ID.Seq > other.ID.Seq
}

// before is the canonical total order used for serialization: ascending
// (Lamport, Actor, Seq).
func (o Op) before(other Op) bool {
	if o.Lamport != other.Lamport {
		return o.Lamport < other.Lamport
	}
	if o.ID.Actor != other.ID.Actor {
		return o.ID.Actor < other.ID.Actor
	}
	return o.ID.Seq < other.ID.Seq
}
