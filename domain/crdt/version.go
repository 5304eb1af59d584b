package crdt

// VersionVector records the highest sequence number observed per actor.
// It serves as the position marker for DiffSince and as the persisted
// merge head in a store's sync directory: an op is covered by a vector
// exactly when that actor's entry has reached its sequence.
type VersionVector map[ActorID]uint64

// NewVersionVector returns an empty marker, covering nothing.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Covers reports whether the op named by id is already accounted for.
func (vv VersionVector) Covers(id OpID) bool {
	return vv[id.Actor] >= id.Seq
}

// Observe advances the actor's entry to at least id.Seq.
func (vv VersionVector) Observe(id OpID) {
	if vv[id.Actor] < id.Seq {
		vv[id.Actor] = id.Seq
	}
}

// Merge folds another vector in, keeping the maximum per actor.
func (vv VersionVector) Merge(other VersionVector) {
	for actor, seq := range other {
		if vv[actor] < seq {
			vv[actor] = seq
		}
	}
}

// Clone returns an independent copy.
func (vv VersionVector) Clone() VersionVector {
	out := make(VersionVector, len(vv))
	for actor, seq := range vv {
		out[actor] = seq
	}
	return out
}

// Equal reports whether two vectors cover exactly the same history.
func (vv VersionVector) Equal(other VersionVector) bool {
	if len(vv) != len(other) {
		return false
	}
	for actor, seq := range vv {
		if other[actor] != seq {
			return false
		}
	}
	return true
}
