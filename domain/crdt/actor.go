package crdt

import "github.com/oklog/ulid/v2"

// ActorID identifies one document instance in merge tie-breaks. Every
// open, load or fork allocates a fresh actor, so per-actor sequence
// numbers never collide across process restarts.
type ActorID string

// NewActorID allocates a sortable 128-bit actor identifier.
func NewActorID() ActorID {
	return ActorID(ulid.Make().String())
}
