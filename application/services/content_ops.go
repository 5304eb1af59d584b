package services

import (
	"context"
	"fmt"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/domain/crdt"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

// The content operations funnel every document mutation through one
// place: load (or decode) the node's document, mutate it through the
// engine, revalidate through the type handler, persist, cache, publish.
// The per-store lock makes each document strictly single-writer.

// NodeText returns a node's text content.
func (m *StoreManager) NodeText(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (string, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return "", err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, _, err := m.docForNode(ctx, ms, nodeID)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// SetNodeText replaces a node's text with a minimal edit, preserving
// concurrent edits elsewhere in the document.
func (m *StoreManager) SetNodeText(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, text string) error {
	return m.mutateDocument(ctx, storeID, nodeID, func(doc *crdt.Document) error {
		doc.SetText(text)
		return nil
	})
}

// InsertNodeText inserts text at a rune position.
func (m *StoreManager) InsertNodeText(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, pos int, text string) error {
	return m.mutateDocument(ctx, storeID, nodeID, func(doc *crdt.Document) error {
		doc.InsertText(pos, text)
		return nil
	})
}

// DeleteNodeText removes a run of runes.
func (m *StoreManager) DeleteNodeText(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, pos, count int) error {
	return m.mutateDocument(ctx, storeID, nodeID, func(doc *crdt.Document) error {
		doc.DeleteText(pos, count)
		return nil
	})
}

// NodeField reads one named field of a node's document.
func (m *StoreManager) NodeField(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, field string) (string, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return "", err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, _, err := m.docForNode(ctx, ms, nodeID)
	if err != nil {
		return "", err
	}
	value, _ := doc.Field(field)
	return value, nil
}

// NodeFields returns every named field of a node's document.
func (m *StoreManager) NodeFields(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (map[string]string, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, _, err := m.docForNode(ctx, ms, nodeID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, name := range doc.FieldNames() {
		if value, ok := doc.Field(name); ok {
			out[name] = value
		}
	}
	return out, nil
}

// SetNodeField writes one named field of a node's document.
func (m *StoreManager) SetNodeField(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, field, value string) error {
	return m.mutateDocument(ctx, storeID, nodeID, func(doc *crdt.Document) error {
		doc.SetField(field, value)
		return nil
	})
}

// NodeHeads captures the document's current position marker, the token a
// later NodeChanges call turns into an incremental change-set.
func (m *StoreManager) NodeHeads(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (crdt.VersionVector, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, _, err := m.docForNode(ctx, ms, nodeID)
	if err != nil {
		return nil, err
	}
	return doc.Heads(), nil
}

// NodeChanges encodes the edits not yet covered by the marker. A nil
// marker falls back to the store's persisted sync marker for the node;
// a node never synced yields its full history.
func (m *StoreManager) NodeChanges(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, since crdt.VersionVector) ([]byte, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, _, err := m.docForNode(ctx, ms, nodeID)
	if err != nil {
		return nil, err
	}
	if since == nil {
		stored, err := ms.persistence.Heads(ctx)
		if err != nil {
			return nil, err
		}
		since = stored[nodeID.String()]
	}
	return doc.DiffSince(since), nil
}

// ApplyNodeChanges merges a change-set produced elsewhere into the node's
// document, persists the merged state and advances the node's sync
// marker to cover what arrived. Applying the same change-set again is a
// no-op.
func (m *StoreManager) ApplyNodeChanges(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, changes []byte) error {
	ms, err := m.resolve(storeID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return err
	}
	doc, err := m.docForNodeEntity(ms, node)
	if err != nil {
		return err
	}
	if err := doc.ApplyChanges(changes); err != nil {
		return err
	}
	if err := m.persistDocument(ctx, ms, node, doc); err != nil {
		return err
	}
	if err := m.advanceSyncMarker(ctx, ms, nodeID, doc.Heads()); err != nil {
		return err
	}
	m.publish(ctx, storeID, nodeID, ports.ChangeUpdated)
	return nil
}

// MarkNodeSynced records that a peer has acknowledged the node up to the
// marker. A nil marker means the document's current heads.
func (m *StoreManager) MarkNodeSynced(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, marker crdt.VersionVector) error {
	ms, err := m.resolve(storeID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if marker == nil {
		doc, _, err := m.docForNode(ctx, ms, nodeID)
		if err != nil {
			return err
		}
		marker = doc.Heads()
	}
	return m.advanceSyncMarker(ctx, ms, nodeID, marker)
}

// RenderNode produces the display form of a node's content through its
// type handler.
func (m *StoreManager) RenderNode(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (ports.RenderOutput, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return ports.RenderOutput{}, err
	}
	if node.ContentCorrupted() {
		return ports.RenderOutput{}, corruptedContentError(nodeID)
	}
	return m.registry.Resolve(node.Type()).Render(node.Content())
}

// ExtractNodeText produces the plain text a search index would consume.
func (m *StoreManager) ExtractNodeText(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (string, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return "", err
	}
	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return "", err
	}
	if node.ContentCorrupted() {
		return "", corruptedContentError(nodeID)
	}
	return m.registry.Resolve(node.Type()).ExtractText(node.Content())
}

// SweepAssets removes assets no node references anymore. A node claims
// an asset through the "asset" field of its document.
func (m *StoreManager) SweepAssets(ctx context.Context, storeID valueobjects.StoreID) (int, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	snapshot, err := ms.persistence.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	var live []valueobjects.ContentHash
	for _, node := range snapshot {
		if len(node.Content()) == 0 || node.ContentCorrupted() {
			continue
		}
		doc, err := m.docForNodeEntity(ms, node)
		if err != nil {
			continue
		}
		if ref, ok := doc.Field("asset"); ok && ref != "" {
			if hash, err := valueobjects.NewContentHashFromFilename(ref); err == nil {
				live = append(live, hash)
			}
		}
	}
	return ms.persistence.SweepAssets(ctx, live)
}

// mutateDocument is the shared write path for content edits.
func (m *StoreManager) mutateDocument(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, mutate func(*crdt.Document) error) error {
	ms, err := m.resolve(storeID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return err
	}
	doc, err := m.docForNodeEntity(ms, node)
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if err := m.persistDocument(ctx, ms, node, doc); err != nil {
		return err
	}
	m.publish(ctx, storeID, nodeID, ports.ChangeUpdated)
	return nil
}

// docForNode loads a node and its decoded document. Caller holds the
// store lock.
func (m *StoreManager) docForNode(ctx context.Context, ms *managedStore, nodeID valueobjects.NodeID) (*crdt.Document, *entities.Node, error) {
	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := m.docForNodeEntity(ms, node)
	if err != nil {
		return nil, nil, err
	}
	return doc, node, nil
}

// docForNodeEntity resolves the decoded document for an already-loaded
// node, consulting the cache first. A node without content gets a fresh
// empty document; it reaches disk on the first edit.
func (m *StoreManager) docForNodeEntity(ms *managedStore, node *entities.Node) (*crdt.Document, error) {
	if node.ContentCorrupted() {
		return nil, corruptedContentError(node.ID())
	}
	storeKey := ms.store.ID().String()
	nodeKey := node.ID().String()
	if doc, ok := m.cache.Get(storeKey, nodeKey); ok {
		return doc, nil
	}

	var doc *crdt.Document
	if len(node.Content()) == 0 {
		doc = crdt.New()
	} else {
		var err error
		doc, err = crdt.Load(node.Content())
		if err != nil {
			return nil, err
		}
	}
	m.cache.Put(storeKey, nodeKey, doc)
	return doc, nil
}

// persistDocument saves the document through the node's type handler
// gate and writes it durably. Caller holds the store lock.
func (m *StoreManager) persistDocument(ctx context.Context, ms *managedStore, node *entities.Node, doc *crdt.Document) error {
	data := doc.Save()
	if err := m.registry.Resolve(node.Type()).Validate(data); err != nil {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("content rejected for node type %q: %v", node.Type(), err))
	}
	node.SetContent(data)
	if err := ms.persistence.WriteNode(ctx, node); err != nil {
		return err
	}
	m.cache.Put(ms.store.ID().String(), node.ID().String(), doc)
	return nil
}

// advanceSyncMarker merges a marker into the store's persisted per-node
// sync record. Caller holds the store lock.
func (m *StoreManager) advanceSyncMarker(ctx context.Context, ms *managedStore, nodeID valueobjects.NodeID, marker crdt.VersionVector) error {
	heads, err := ms.persistence.Heads(ctx)
	if err != nil {
		return err
	}
	existing, ok := heads[nodeID.String()]
	if !ok {
		existing = crdt.NewVersionVector()
	}
	existing.Merge(marker)
	heads[nodeID.String()] = existing
	return ms.persistence.SaveHeads(ctx, heads)
}

func corruptedContentError(nodeID valueobjects.NodeID) error {
	return pkgerrors.NewDecodeError(
		fmt.Sprintf("content of node %s", nodeID),
		fmt.Errorf("stored bytes failed to decode when the store was opened"))
}
