// Package services holds the application layer: the store manager that
// owns every open store, serializes mutations, runs plugin hooks and
// publishes change notifications after writes land.
package services

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type storeState int

const (
	stateOpen storeState = iota
	stateClosing
)

// managedStore is one open store: its descriptor, its persistence and the
// lock that makes every mutation in the store single-writer.
type managedStore struct {
	mu          sync.Mutex
	state       storeState
	store       *entities.Store
	persistence ports.Persistence
	openedAt    time.Time
}

// StoreManager is the single owner of the open-store table. Every store
// operation in the system goes through it: it keeps stores opened exactly
// once per location, serializes mutations per store, owns the decoded
// document cache and publishes node change events after persistence.
type StoreManager struct {
	factory  ports.PersistenceFactory
	cache    *DocumentCache
	registry ports.HandlerRegistry
	bus      ports.EventBus
	logger   *zap.Logger

	mu      sync.RWMutex
	byID    map[string]*managedStore
	byPath  map[string]string
	opening singleflight.Group
}

// NewStoreManager wires the manager. The cache and bus may not be nil;
// callers that want neither pass the no-op implementations.
func NewStoreManager(
	factory ports.PersistenceFactory,
	cache *DocumentCache,
	registry ports.HandlerRegistry,
	bus ports.EventBus,
	logger *zap.Logger,
) *StoreManager {
	return &StoreManager{
		factory:  factory,
		cache:    cache,
		registry: registry,
		bus:      bus,
		logger:   logger,
		byID:     make(map[string]*managedStore),
		byPath:   make(map[string]string),
	}
}

// CreateStore initializes a brand new store at the location and leaves it
// open.
func (m *StoreManager) CreateStore(ctx context.Context, location entities.StoreLocation, name string) (*entities.Store, error) {
	key := locationKey(location)
	m.mu.RLock()
	_, alreadyOpen := m.byPath[key]
	m.mu.RUnlock()
	if alreadyOpen {
		return nil, pkgerrors.NewAlreadyExistsError(key)
	}

	persistence, err := m.factory.Create(ctx, location, name)
	if err != nil {
		return nil, err
	}
	ms := m.register(persistence)
	m.logger.Info("Store created and opened",
		zap.String("storeID", ms.store.ID().String()),
		zap.String("name", name),
	)
	return ms.store, nil
}

// OpenStore opens the store at the location, or returns the existing
// handle when it is open already. Concurrent opens of one location
// coalesce into a single filesystem open.
func (m *StoreManager) OpenStore(ctx context.Context, location entities.StoreLocation) (*entities.Store, error) {
	key := locationKey(location)

	if store, err, found := m.lookupByPath(key); found {
		return store, err
	}

	v, err, _ := m.opening.Do(key, func() (interface{}, error) {
		if store, err, found := m.lookupByPath(key); found {
			if err != nil {
				return nil, err
			}
			return store, nil
		}
		persistence, err := m.factory.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		ms := m.register(persistence)
		m.logger.Info("Store opened",
			zap.String("storeID", ms.store.ID().String()),
			zap.String("name", ms.store.Name()),
			zap.Int("corruptedNodes", len(persistence.CorruptedNodes())),
		)
		return ms.store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.Store), nil
}

// lookupByPath resolves an already-open store by location key. The third
// return says whether the lookup settled the call.
func (m *StoreManager) lookupByPath(key string) (*entities.Store, error, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPath[key]
	if !ok {
		return nil, nil, false
	}
	ms := m.byID[id]
	if ms == nil {
		return nil, nil, false
	}
	if ms.state == stateClosing {
		return nil, pkgerrors.NewStoreClosingError(id), true
	}
	return ms.store, nil, true
}

func (m *StoreManager) register(persistence ports.Persistence) *managedStore {
	manifest := persistence.Manifest()
	location := persistence.Location()
	ms := &managedStore{
		state:       stateOpen,
		store:       entities.NewStore(manifest, location),
		persistence: persistence,
		openedAt:    time.Now().UTC(),
	}
	m.mu.Lock()
	m.byID[manifest.ID.String()] = ms
	m.byPath[locationKey(location)] = manifest.ID.String()
	m.mu.Unlock()
	return ms
}

// CloseStore flushes and closes one store. In-flight mutations finish
// first; operations arriving during the close fail with StoreClosing.
func (m *StoreManager) CloseStore(ctx context.Context, storeID valueobjects.StoreID) error {
	id := storeID.String()

	m.mu.Lock()
	ms, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.NewStoreNotOpenError(id)
	}
	if ms.state == stateClosing {
		m.mu.Unlock()
		return nil
	}
	ms.state = stateClosing
	m.mu.Unlock()

	ms.mu.Lock()
	err := ms.persistence.Close(ctx)
	ms.mu.Unlock()

	m.unregister(ms)
	m.cache.InvalidateStore(id)

	if err != nil {
		m.logger.Error("Store closed with persistence error",
			zap.String("storeID", id),
			zap.Error(err),
		)
		return err
	}
	m.logger.Info("Store closed", zap.String("storeID", id))
	return nil
}

// DeleteStore closes a store and removes its directory from disk.
func (m *StoreManager) DeleteStore(ctx context.Context, storeID valueobjects.StoreID) error {
	id := storeID.String()

	m.mu.Lock()
	ms, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.NewStoreNotOpenError(id)
	}
	if ms.state == stateClosing {
		m.mu.Unlock()
		return pkgerrors.NewStoreClosingError(id)
	}
	ms.state = stateClosing
	m.mu.Unlock()

	ms.mu.Lock()
	err := ms.persistence.Destroy(ctx)
	ms.mu.Unlock()

	m.unregister(ms)
	m.cache.InvalidateStore(id)

	if err != nil {
		return err
	}
	m.logger.Info("Store deleted", zap.String("storeID", id))
	return nil
}

func (m *StoreManager) unregister(ms *managedStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, ms.store.ID().String())
	delete(m.byPath, locationKey(ms.store.Location()))
}

// CloseAll closes every open store, keeping going past failures. Used at
// shutdown.
func (m *StoreManager) CloseAll(ctx context.Context) error {
	var firstErr error
	for _, store := range m.ListStores(ctx) {
		if err := m.CloseStore(ctx, store.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListStores returns the open stores in stable name order.
func (m *StoreManager) ListStores(ctx context.Context) []*entities.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entities.Store, 0, len(m.byID))
	for _, ms := range m.byID {
		if ms.state == stateOpen {
			out = append(out, ms.store)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}

// IsOpen reports whether a store is open and accepting operations.
func (m *StoreManager) IsOpen(storeID valueobjects.StoreID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.byID[storeID.String()]
	return ok && ms.state == stateOpen
}

// RootNodeID returns the root node id of an open store.
func (m *StoreManager) RootNodeID(storeID valueobjects.StoreID) (valueobjects.NodeID, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return valueobjects.NodeID{}, err
	}
	return ms.store.RootNodeID(), nil
}

// Flush persists one store's buffered state.
func (m *StoreManager) Flush(ctx context.Context, storeID valueobjects.StoreID) error {
	ms, err := m.resolve(storeID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.persistence.Flush(ctx)
}

// FlushAll flushes every open store. Used at shutdown before CloseAll and
// on demand. Stores flush in parallel; each holds only its own lock.
func (m *StoreManager) FlushAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, store := range m.ListStores(ctx) {
		id := store.ID()
		g.Go(func() error {
			return m.Flush(ctx, id)
		})
	}
	return g.Wait()
}

// CacheStats exposes document cache counters for observability.
func (m *StoreManager) CacheStats() CacheStats {
	return m.cache.Stats()
}

// resolve returns the managed store for an id, enforcing the lifecycle:
// unknown ids fail StoreNotOpen, closing stores fail StoreClosing.
func (m *StoreManager) resolve(storeID valueobjects.StoreID) (*managedStore, error) {
	id := storeID.String()
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.byID[id]
	if !ok {
		return nil, pkgerrors.NewStoreNotOpenError(id)
	}
	if ms.state == stateClosing {
		return nil, pkgerrors.NewStoreClosingError(id)
	}
	return ms, nil
}

// locationKey canonicalizes a location so one store cannot be opened
// twice through path spellings that alias.
func locationKey(location entities.StoreLocation) string {
	switch location.Kind {
	case entities.LocationLocal:
		path := location.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return string(location.Kind) + "|" + filepath.Clean(path)
	case entities.LocationRemote:
		return string(location.Kind) + "|" + location.URL
	case entities.LocationMounted:
		return string(location.Kind) + "|" + location.StoreID.String() + "|" + location.NodeID.String()
	default:
		return string(location.Kind) + "|" + location.Path + location.URL
	}
}
