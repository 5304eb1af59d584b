//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"github.com/joeleaver/pimble/infrastructure/config"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideTracer,
	ProvideDocumentCache,
	ProvideHandlerRegistry,
	ProvideEventBus,
	ProvidePersistenceFactory,
	ProvideStoreManager,
	ProvideWorkspaceRepository,
	ProvideStoreWatcher,
	ProvideHub,
	ProvideRouter,
	ProvideServer,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
