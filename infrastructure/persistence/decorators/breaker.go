package decorators

import (
	"context"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the write-path circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after a sustained majority of I/O failures
// and probes again after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerPersistence guards the disk-writing operations of a Persistence
// behind a circuit breaker. Only I/O failures count against the breaker;
// domain outcomes like not-found or has-children are successes as far as
// the disk is concerned. Reads serve from memory and bypass the breaker.
type BreakerPersistence struct {
	inner ports.Persistence
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerPersistence creates the circuit-breaking decorator.
func NewBreakerPersistence(inner ports.Persistence, logger *zap.Logger, config BreakerConfig) ports.Persistence {
	name := "store-" + inner.Manifest().ID.String()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Persistence circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsIO(err)
		},
	})
	return &BreakerPersistence{inner: inner, cb: cb}
}

func (d *BreakerPersistence) execute(op func() error) error {
	_, err := d.cb.Execute(func() (interface{}, error) {
		return nil, op()
	})
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return pkgerrors.NewIOError("persistence suspended after repeated failures", err)
	default:
		return err
	}
}

func (d *BreakerPersistence) Manifest() entities.StoreManifest { return d.inner.Manifest() }

func (d *BreakerPersistence) Location() entities.StoreLocation { return d.inner.Location() }

func (d *BreakerPersistence) CorruptedNodes() []valueobjects.NodeID {
	return d.inner.CorruptedNodes()
}

func (d *BreakerPersistence) ReadNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	return d.inner.ReadNode(ctx, id)
}

func (d *BreakerPersistence) RefreshNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	return d.inner.RefreshNode(ctx, id)
}

func (d *BreakerPersistence) ListChildren(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	return d.inner.ListChildren(ctx, id)
}

func (d *BreakerPersistence) ListNodeIDs(ctx context.Context) ([]valueobjects.NodeID, error) {
	return d.inner.ListNodeIDs(ctx)
}

func (d *BreakerPersistence) Snapshot(ctx context.Context) (map[valueobjects.NodeID]*entities.Node, error) {
	return d.inner.Snapshot(ctx)
}

func (d *BreakerPersistence) Heads(ctx context.Context) (map[string]crdt.VersionVector, error) {
	return d.inner.Heads(ctx)
}

func (d *BreakerPersistence) OpenAsset(ctx context.Context, hash valueobjects.ContentHash) ([]byte, error) {
	return d.inner.OpenAsset(ctx, hash)
}

func (d *BreakerPersistence) WriteNode(ctx context.Context, node *entities.Node) error {
	return d.execute(func() error { return d.inner.WriteNode(ctx, node) })
}

func (d *BreakerPersistence) DeleteNode(ctx context.Context, id valueobjects.NodeID, recursive bool) error {
	return d.execute(func() error { return d.inner.DeleteNode(ctx, id, recursive) })
}

func (d *BreakerPersistence) PutAsset(ctx context.Context, data []byte, ext string) (valueobjects.ContentHash, error) {
	var hash valueobjects.ContentHash
	err := d.execute(func() error {
		var innerErr error
		hash, innerErr = d.inner.PutAsset(ctx, data, ext)
		return innerErr
	})
	return hash, err
}

func (d *BreakerPersistence) SweepAssets(ctx context.Context, live []valueobjects.ContentHash) (int, error) {
	var removed int
	err := d.execute(func() error {
		var innerErr error
		removed, innerErr = d.inner.SweepAssets(ctx, live)
		return innerErr
	})
	return removed, err
}

func (d *BreakerPersistence) SaveHeads(ctx context.Context, heads map[string]crdt.VersionVector) error {
	return d.execute(func() error { return d.inner.SaveHeads(ctx, heads) })
}

func (d *BreakerPersistence) Flush(ctx context.Context) error {
	return d.execute(func() error { return d.inner.Flush(ctx) })
}

// Close and Destroy bypass the breaker so a store can always be released.
func (d *BreakerPersistence) Close(ctx context.Context) error {
	return d.inner.Close(ctx)
}

func (d *BreakerPersistence) Destroy(ctx context.Context) error {
	return d.inner.Destroy(ctx)
}
