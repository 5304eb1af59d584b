package ports

import (
	"context"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
)

// Persistence is one store's durable layer: the crash-safe mapping
// between the logical node tree and its on-disk directory. Implementations
// own the byte representation exclusively; callers never touch store
// files directly.
type Persistence interface {
	// Manifest returns the store's identity record as read at open.
	Manifest() entities.StoreManifest

	// Location returns where this store lives.
	Location() entities.StoreLocation

	// ReadNode loads one node. A node whose content bytes are missing or
	// undecodable is returned with its corruption flag set rather than
	// failing; unknown ids fail with a not-found error.
	ReadNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// WriteNode persists one node durably before returning: content bytes
	// first, then metadata, each through an atomic rename.
	WriteNode(ctx context.Context, node *entities.Node) error

	// DeleteNode removes a node, depth-first when recursive. A populated
	// node without the recursive flag is refused. Shared assets are not
	// collected here.
	DeleteNode(ctx context.Context, id valueobjects.NodeID, recursive bool) error

	// RefreshNode re-reads one node's files from disk, replacing the
	// in-memory state. Store files are user-ownable; this is how an edit
	// made behind the running process becomes visible. A node whose files
	// vanished is dropped and reported not-found.
	RefreshNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// ListChildren returns a node's ordered child ids.
	ListChildren(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error)

	// ListNodeIDs returns every node id in the store.
	ListNodeIDs(ctx context.Context) ([]valueobjects.NodeID, error)

	// Snapshot materializes the whole tree, for structural validation.
	Snapshot(ctx context.Context) (map[valueobjects.NodeID]*entities.Node, error)

	// CorruptedNodes lists ids whose content failed to decode, populated
	// as damage is discovered.
	CorruptedNodes() []valueobjects.NodeID

	// PutAsset stores a content-addressed binary and returns its hash.
	// Writing bytes already present is a no-op returning the same hash.
	PutAsset(ctx context.Context, data []byte, ext string) (valueobjects.ContentHash, error)

	// OpenAsset reads a stored asset by hash.
	OpenAsset(ctx context.Context, hash valueobjects.ContentHash) ([]byte, error)

	// SweepAssets removes stored assets not in the live set, returning
	// how many were collected.
	SweepAssets(ctx context.Context, live []valueobjects.ContentHash) (int, error)

	// Heads reads the persisted per-node merge markers.
	Heads(ctx context.Context) (map[string]crdt.VersionVector, error)

	// SaveHeads persists the per-node merge markers.
	SaveHeads(ctx context.Context, heads map[string]crdt.VersionVector) error

	// Flush persists any buffered state. Node writes are write-through,
	// so this covers auxiliary records such as merge markers.
	Flush(ctx context.Context) error

	// Close flushes and releases the store's advisory lock. The directory
	// is left intact.
	Close(ctx context.Context) error

	// Destroy removes the store's entire directory. Only an explicit
	// delete reaches this.
	Destroy(ctx context.Context) error
}

// PersistenceFactory creates or opens the durable layer for a location.
type PersistenceFactory interface {
	// Create initializes a fresh store at the location. A non-empty
	// location is refused.
	Create(ctx context.Context, location entities.StoreLocation, name string) (Persistence, error)

	// Open attaches to an existing store, validating its manifest and
	// acquiring its advisory lock.
	Open(ctx context.Context, location entities.StoreLocation) (Persistence, error)
}
