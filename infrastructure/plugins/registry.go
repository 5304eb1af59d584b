// Package plugins resolves node types to their capability handlers: the
// hooks that initialize, validate, render and text-extract a node's
// opaque content. Unknown types degrade to pass-through behavior so one
// unrecognized tag never fails a tree load.
package plugins

import (
	"sort"
	"sync"

	"github.com/joeleaver/pimble/application/ports"
	"go.uber.org/zap"
)

// Registry implements ports.HandlerRegistry over a fixed builtin set plus
// whatever callers register on top.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.TypeHandler
	fallback ports.TypeHandler
	logger   *zap.Logger
}

// NewRegistry creates a registry preloaded with the builtin handlers.
func NewRegistry(logger *zap.Logger) ports.HandlerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		handlers: make(map[string]ports.TypeHandler),
		fallback: PassthroughHandler{},
		logger:   logger,
	}
	for _, h := range BuiltinHandlers() {
		r.Register(h)
	}
	return r
}

// Register installs a handler, replacing any previous handler for the
// same type.
func (r *Registry) Register(handler ports.TypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, replaced := r.handlers[handler.NodeType()]; replaced {
		r.logger.Warn("Replacing type handler", zap.String("nodeType", handler.NodeType()))
	}
	r.handlers[handler.NodeType()] = handler
}

// Resolve returns the handler for a node type, or the pass-through
// handler when none is registered. Never nil.
func (r *Registry) Resolve(nodeType string) ports.TypeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[nodeType]; ok {
		return h
	}
	return r.fallback
}

// Known lists the registered type tags in sorted order.
func (r *Registry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
