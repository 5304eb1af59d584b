// Package di assembles the application from its parts. The wiring is
// declared as wire providers; wire_gen.go carries the generated
// initializer.
package di

import (
	"context"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/infrastructure/config"
	"github.com/joeleaver/pimble/infrastructure/watcher"
	"github.com/joeleaver/pimble/interfaces/rpc"
	"github.com/joeleaver/pimble/interfaces/websocket"
	"github.com/joeleaver/pimble/pkg/observability"
	"go.uber.org/zap"
)

// Container holds all application dependencies.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Collector *observability.Collector
	Tracing   *observability.TracerProvider
	Cache     *services.DocumentCache
	Registry  ports.HandlerRegistry
	Bus       ports.EventBus
	Factory   ports.PersistenceFactory
	Manager   *services.StoreManager
	Workspace ports.WorkspaceRepository
	Watcher   *watcher.StoreWatcher
	Hub       *websocket.Hub
	Router    *rpc.Router
	Server    *rpc.Server
}

// Shutdown releases everything the container owns that the server's own
// shutdown does not: the watcher, the cache janitor, the trace exporter
// and the log buffers.
func (c *Container) Shutdown(ctx context.Context) {
	if c.Watcher != nil {
		if err := c.Watcher.Close(); err != nil {
			c.Logger.Warn("Watcher close failed", zap.Error(err))
		}
	}
	c.Cache.Stop()
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			c.Logger.Warn("Trace exporter shutdown failed", zap.Error(err))
		}
	}
	c.Logger.Sync()
}
