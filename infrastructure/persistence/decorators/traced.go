package decorators

import (
	"context"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracePersistence wraps a Persistence with distributed tracing.
func TracePersistence(inner ports.Persistence, tracer trace.Tracer) ports.Persistence {
	return &tracedPersistence{
		inner:   inner,
		tracer:  tracer,
		storeID: inner.Manifest().ID.String(),
	}
}

type tracedPersistence struct {
	inner   ports.Persistence
	tracer  trace.Tracer
	storeID string
}

func (d *tracedPersistence) Manifest() entities.StoreManifest { return d.inner.Manifest() }

func (d *tracedPersistence) Location() entities.StoreLocation { return d.inner.Location() }

func (d *tracedPersistence) CorruptedNodes() []valueobjects.NodeID {
	return d.inner.CorruptedNodes()
}

func (d *tracedPersistence) ReadNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.ReadNode",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("node.id", id.String()),
		),
	)
	defer span.End()

	node, err := d.inner.ReadNode(ctx, id)
	if err != nil {
		span.RecordError(err)
	}
	return node, err
}

func (d *tracedPersistence) WriteNode(ctx context.Context, node *entities.Node) error {
	ctx, span := d.tracer.Start(ctx, "persistence.WriteNode",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("node.id", node.ID().String()),
			attribute.Int("content.bytes", len(node.Content())),
		),
	)
	defer span.End()

	err := d.inner.WriteNode(ctx, node)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *tracedPersistence) DeleteNode(ctx context.Context, id valueobjects.NodeID, recursive bool) error {
	ctx, span := d.tracer.Start(ctx, "persistence.DeleteNode",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("node.id", id.String()),
			attribute.Bool("recursive", recursive),
		),
	)
	defer span.End()

	err := d.inner.DeleteNode(ctx, id, recursive)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *tracedPersistence) RefreshNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.RefreshNode",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("node.id", id.String()),
		),
	)
	defer span.End()

	node, err := d.inner.RefreshNode(ctx, id)
	if err != nil {
		span.RecordError(err)
	}
	return node, err
}

func (d *tracedPersistence) ListChildren(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.ListChildren",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("node.id", id.String()),
		),
	)
	defer span.End()

	children, err := d.inner.ListChildren(ctx, id)
	if err != nil {
		span.RecordError(err)
	}
	return children, err
}

func (d *tracedPersistence) ListNodeIDs(ctx context.Context) ([]valueobjects.NodeID, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.ListNodeIDs",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	ids, err := d.inner.ListNodeIDs(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return ids, err
}

func (d *tracedPersistence) Snapshot(ctx context.Context) (map[valueobjects.NodeID]*entities.Node, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.Snapshot",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	nodes, err := d.inner.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("nodes", len(nodes)))
	return nodes, err
}

func (d *tracedPersistence) PutAsset(ctx context.Context, data []byte, ext string) (valueobjects.ContentHash, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.PutAsset",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.Int("asset.bytes", len(data)),
		),
	)
	defer span.End()

	hash, err := d.inner.PutAsset(ctx, data, ext)
	if err != nil {
		span.RecordError(err)
	}
	return hash, err
}

func (d *tracedPersistence) OpenAsset(ctx context.Context, hash valueobjects.ContentHash) ([]byte, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.OpenAsset",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.String("asset", hash.Filename()),
		),
	)
	defer span.End()

	data, err := d.inner.OpenAsset(ctx, hash)
	if err != nil {
		span.RecordError(err)
	}
	return data, err
}

func (d *tracedPersistence) SweepAssets(ctx context.Context, live []valueobjects.ContentHash) (int, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.SweepAssets",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.Int("live", len(live)),
		),
	)
	defer span.End()

	removed, err := d.inner.SweepAssets(ctx, live)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("removed", removed))
	return removed, err
}

func (d *tracedPersistence) Heads(ctx context.Context) (map[string]crdt.VersionVector, error) {
	ctx, span := d.tracer.Start(ctx, "persistence.Heads",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	heads, err := d.inner.Heads(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return heads, err
}

func (d *tracedPersistence) SaveHeads(ctx context.Context, heads map[string]crdt.VersionVector) error {
	ctx, span := d.tracer.Start(ctx, "persistence.SaveHeads",
		trace.WithAttributes(
			attribute.String("store.id", d.storeID),
			attribute.Int("markers", len(heads)),
		),
	)
	defer span.End()

	err := d.inner.SaveHeads(ctx, heads)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *tracedPersistence) Flush(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "persistence.Flush",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	err := d.inner.Flush(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *tracedPersistence) Close(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "persistence.Close",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	err := d.inner.Close(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *tracedPersistence) Destroy(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "persistence.Destroy",
		trace.WithAttributes(attribute.String("store.id", d.storeID)),
	)
	defer span.End()

	err := d.inner.Destroy(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
