package ports

import (
	"context"
	"time"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

// ChangeType says what happened to a node.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
	ChangeMoved   ChangeType = "moved"
)

// NodeChangedEvent is published after a mutation has been persisted.
// Consumers treat it as a hint to refresh, never as the mutation itself.
type NodeChangedEvent struct {
	StoreID valueobjects.StoreID
	NodeID  valueobjects.NodeID
	Change  ChangeType
	At      time.Time
}

// EventBus distributes node change notifications. Delivery is
// best-effort: a slow subscriber drops events rather than blocking
// the publisher.
type EventBus interface {
	Publish(ctx context.Context, event NodeChangedEvent)

	// Subscribe returns a receive channel and a cancel function. The
	// channel is closed after cancel returns.
	Subscribe(buffer int) (<-chan NodeChangedEvent, func())
}
