// Package decorators layers cross-cutting concerns over the persistence
// port without touching the implementations: logging, failure isolation
// and tracing compose around any ports.Persistence.
package decorators

import (
	"context"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	"go.uber.org/zap"
)

// LoggingConfig controls what the logging decorator records.
type LoggingConfig struct {
	LogErrors     bool
	LogTiming     bool
	SlowThreshold time.Duration
}

// DefaultLoggingConfig logs errors and anything slower than a second.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogErrors:     true,
		LogTiming:     true,
		SlowThreshold: time.Second,
	}
}

// LoggingPersistence wraps a Persistence with operation logging. Writes
// log their duration; reads only surface when they fail or crawl.
type LoggingPersistence struct {
	inner  ports.Persistence
	logger *zap.Logger
	config LoggingConfig
}

// NewLoggingPersistence creates the logging decorator.
func NewLoggingPersistence(inner ports.Persistence, logger *zap.Logger, config LoggingConfig) ports.Persistence {
	return &LoggingPersistence{
		inner:  inner,
		logger: logger.Named("persistence"),
		config: config,
	}
}

func (d *LoggingPersistence) observe(op string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	fields = append(fields,
		zap.String("operation", op),
		zap.String("storeID", d.inner.Manifest().ID.String()),
		zap.Duration("elapsed", elapsed),
	)
	switch {
	case err != nil && d.config.LogErrors:
		d.logger.Error("Persistence operation failed", append(fields, zap.Error(err))...)
	case d.config.LogTiming && d.config.SlowThreshold > 0 && elapsed >= d.config.SlowThreshold:
		d.logger.Warn("Slow persistence operation", fields...)
	case d.config.LogTiming:
		d.logger.Debug("Persistence operation", fields...)
	}
}

func (d *LoggingPersistence) Manifest() entities.StoreManifest { return d.inner.Manifest() }

func (d *LoggingPersistence) Location() entities.StoreLocation { return d.inner.Location() }

func (d *LoggingPersistence) CorruptedNodes() []valueobjects.NodeID {
	return d.inner.CorruptedNodes()
}

func (d *LoggingPersistence) ReadNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	start := time.Now()
	node, err := d.inner.ReadNode(ctx, id)
	d.observe("read_node", start, err, zap.String("nodeID", id.String()))
	return node, err
}

func (d *LoggingPersistence) WriteNode(ctx context.Context, node *entities.Node) error {
	start := time.Now()
	err := d.inner.WriteNode(ctx, node)
	d.observe("write_node", start, err, zap.String("nodeID", node.ID().String()))
	return err
}

func (d *LoggingPersistence) DeleteNode(ctx context.Context, id valueobjects.NodeID, recursive bool) error {
	start := time.Now()
	err := d.inner.DeleteNode(ctx, id, recursive)
	d.observe("delete_node", start, err,
		zap.String("nodeID", id.String()),
		zap.Bool("recursive", recursive),
	)
	return err
}

func (d *LoggingPersistence) RefreshNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	start := time.Now()
	node, err := d.inner.RefreshNode(ctx, id)
	d.observe("refresh_node", start, err, zap.String("nodeID", id.String()))
	return node, err
}

func (d *LoggingPersistence) ListChildren(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	start := time.Now()
	children, err := d.inner.ListChildren(ctx, id)
	d.observe("list_children", start, err, zap.String("nodeID", id.String()))
	return children, err
}

func (d *LoggingPersistence) ListNodeIDs(ctx context.Context) ([]valueobjects.NodeID, error) {
	start := time.Now()
	ids, err := d.inner.ListNodeIDs(ctx)
	d.observe("list_node_ids", start, err)
	return ids, err
}

func (d *LoggingPersistence) Snapshot(ctx context.Context) (map[valueobjects.NodeID]*entities.Node, error) {
	start := time.Now()
	nodes, err := d.inner.Snapshot(ctx)
	d.observe("snapshot", start, err, zap.Int("nodes", len(nodes)))
	return nodes, err
}

func (d *LoggingPersistence) PutAsset(ctx context.Context, data []byte, ext string) (valueobjects.ContentHash, error) {
	start := time.Now()
	hash, err := d.inner.PutAsset(ctx, data, ext)
	d.observe("put_asset", start, err, zap.Int("bytes", len(data)))
	return hash, err
}

func (d *LoggingPersistence) OpenAsset(ctx context.Context, hash valueobjects.ContentHash) ([]byte, error) {
	start := time.Now()
	data, err := d.inner.OpenAsset(ctx, hash)
	d.observe("open_asset", start, err, zap.String("asset", hash.Filename()))
	return data, err
}

func (d *LoggingPersistence) SweepAssets(ctx context.Context, live []valueobjects.ContentHash) (int, error) {
	start := time.Now()
	removed, err := d.inner.SweepAssets(ctx, live)
	d.observe("sweep_assets", start, err, zap.Int("removed", removed))
	return removed, err
}

func (d *LoggingPersistence) Heads(ctx context.Context) (map[string]crdt.VersionVector, error) {
	start := time.Now()
	heads, err := d.inner.Heads(ctx)
	d.observe("heads", start, err)
	return heads, err
}

func (d *LoggingPersistence) SaveHeads(ctx context.Context, heads map[string]crdt.VersionVector) error {
	start := time.Now()
	err := d.inner.SaveHeads(ctx, heads)
	d.observe("save_heads", start, err)
	return err
}

func (d *LoggingPersistence) Flush(ctx context.Context) error {
	start := time.Now()
	err := d.inner.Flush(ctx)
	d.observe("flush", start, err)
	return err
}

func (d *LoggingPersistence) Close(ctx context.Context) error {
	start := time.Now()
	err := d.inner.Close(ctx)
	d.observe("close", start, err)
	return err
}

func (d *LoggingPersistence) Destroy(ctx context.Context) error {
	start := time.Now()
	err := d.inner.Destroy(ctx)
	d.observe("destroy", start, err)
	return err
}
