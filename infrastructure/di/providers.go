package di

import (
	"context"
	"path/filepath"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/infrastructure/config"
	"github.com/joeleaver/pimble/infrastructure/events"
	"github.com/joeleaver/pimble/infrastructure/persistence/decorators"
	"github.com/joeleaver/pimble/infrastructure/persistence/localstore"
	"github.com/joeleaver/pimble/infrastructure/persistence/workspacefile"
	"github.com/joeleaver/pimble/infrastructure/plugins"
	"github.com/joeleaver/pimble/infrastructure/watcher"
	"github.com/joeleaver/pimble/interfaces/rpc"
	"github.com/joeleaver/pimble/interfaces/websocket"
	"github.com/joeleaver/pimble/pkg/observability"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideCollector creates the metrics collector, or nil when metrics
// are disabled. Consumers treat a nil collector as "don't measure".
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("pimble")
}

// ProvideTracerProvider initializes the OTLP exporter when tracing is
// enabled; otherwise nil, and the tracer falls back to a no-op.
func ProvideTracerProvider(cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(observability.TracingConfig{
		ServiceName: "pimble",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRate:  cfg.TracingSampleRate,
	})
}

// ProvideTracer extracts the tracer, no-op when tracing is off.
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	if tp == nil {
		return observability.NoopTracer()
	}
	return tp.Tracer()
}

// ProvideDocumentCache creates the shared decoded-document cache.
func ProvideDocumentCache(cfg *config.Config, logger *zap.Logger) *services.DocumentCache {
	return services.NewDocumentCache(cfg.CacheMaxItems, cfg.CacheMaxWeight, cfg.CacheTTL, logger)
}

// ProvideHandlerRegistry creates the node type handler registry with the
// builtin handlers loaded.
func ProvideHandlerRegistry(logger *zap.Logger) ports.HandlerRegistry {
	return plugins.NewRegistry(logger)
}

// ProvideEventBus creates the in-process change notification bus.
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return events.NewBus(logger)
}

// ProvidePersistenceFactory builds the store persistence factory with
// the cross-cutting decorators applied to every store it produces.
func ProvidePersistenceFactory(cfg *config.Config, logger *zap.Logger, tracer trace.Tracer) ports.PersistenceFactory {
	return &decoratedFactory{
		inner:   localstore.NewFactory(logger),
		logger:  logger,
		tracer:  tracer,
		tracing: cfg.EnableTracing,
	}
}

// decoratedFactory wraps every Persistence the inner factory produces:
// logging always, a write-path circuit breaker always, tracing when the
// exporter is up.
type decoratedFactory struct {
	inner   ports.PersistenceFactory
	logger  *zap.Logger
	tracer  trace.Tracer
	tracing bool
}

func (f *decoratedFactory) Create(ctx context.Context, location entities.StoreLocation, name string) (ports.Persistence, error) {
	p, err := f.inner.Create(ctx, location, name)
	if err != nil {
		return nil, err
	}
	return f.decorate(p), nil
}

func (f *decoratedFactory) Open(ctx context.Context, location entities.StoreLocation) (ports.Persistence, error) {
	p, err := f.inner.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	return f.decorate(p), nil
}

func (f *decoratedFactory) decorate(p ports.Persistence) ports.Persistence {
	p = decorators.NewBreakerPersistence(p, f.logger, decorators.DefaultBreakerConfig())
	p = decorators.NewLoggingPersistence(p, f.logger, decorators.DefaultLoggingConfig())
	if f.tracing {
		p = decorators.TracePersistence(p, f.tracer)
	}
	return p
}

// ProvideStoreManager wires the application core.
func ProvideStoreManager(
	factory ports.PersistenceFactory,
	cache *services.DocumentCache,
	registry ports.HandlerRegistry,
	bus ports.EventBus,
	logger *zap.Logger,
) *services.StoreManager {
	return services.NewStoreManager(factory, cache, registry, bus, logger)
}

// ProvideWorkspaceRepository creates the workspace document store.
func ProvideWorkspaceRepository(cfg *config.Config, logger *zap.Logger) ports.WorkspaceRepository {
	path := cfg.WorkspacePath
	if path == "" {
		path = filepath.Join(cfg.DataDir, "workspace.json")
	}
	return workspacefile.NewRepository(path, logger)
}

// ProvideStoreWatcher creates the external-edit watcher, or nil when
// watching is disabled.
func ProvideStoreWatcher(cfg *config.Config, manager *services.StoreManager, logger *zap.Logger) (*watcher.StoreWatcher, error) {
	if !cfg.WatchStores {
		return nil, nil
	}
	return watcher.New(func(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) {
		if _, err := manager.RefreshNode(ctx, storeID, nodeID); err != nil {
			logger.Debug("External change refresh failed",
				zap.String("storeID", storeID.String()),
				zap.String("nodeID", nodeID.String()),
				zap.Error(err))
		}
	}, logger)
}

// ProvideHub creates the websocket notification hub.
func ProvideHub(bus ports.EventBus, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(bus, logger)
}

// ProvideRouter assembles the HTTP boundary.
func ProvideRouter(
	cfg *config.Config,
	manager *services.StoreManager,
	workspace ports.WorkspaceRepository,
	hub *websocket.Hub,
	collector *observability.Collector,
	logger *zap.Logger,
) *rpc.Router {
	return rpc.NewRouter(manager, workspace, hub, collector, logger, cfg.EnableCORS)
}

// ProvideServer creates the HTTP server over the router.
func ProvideServer(
	cfg *config.Config,
	router *rpc.Router,
	manager *services.StoreManager,
	hub *websocket.Hub,
	logger *zap.Logger,
) *rpc.Server {
	return rpc.NewServer(cfg.ServerAddress, router, manager, hub, logger)
}
