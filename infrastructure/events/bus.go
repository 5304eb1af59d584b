// Package events provides the in-process change notification bus. Node
// change events fan out to subscribers after persistence; a subscriber
// that cannot keep up loses events rather than stalling writers.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeleaver/pimble/application/ports"
	"go.uber.org/zap"
)

// Bus implements ports.EventBus with buffered channel fan-out.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan ports.NodeChangedEvent
	nextID  int
	dropped atomic.Int64
	logger  *zap.Logger
}

// NewBus creates an event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[int]chan ports.NodeChangedEvent),
		logger: logger,
	}
}

// Publish delivers the event to every subscriber without blocking. Full
// subscriber buffers drop the event.
func (b *Bus) Publish(ctx context.Context, event ports.NodeChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Debug("Dropped event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("nodeID", event.NodeID.String()),
				zap.String("change", string(event.Change)),
			)
		}
	}
}

// Subscribe registers a listener. The returned cancel closes the channel
// after unregistering; callers drain until close.
func (b *Bus) Subscribe(buffer int) (<-chan ports.NodeChangedEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ports.NodeChangedEvent, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount reports how many listeners are attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many events were lost to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
