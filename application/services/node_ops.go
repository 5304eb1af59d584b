package services

import (
	"context"
	"time"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/validators"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// CreateNodeRequest carries what a new node needs. A zero ParentID means
// the store root; an empty Type defaults to document; Position -1 (or any
// out-of-range value) appends.
type CreateNodeRequest struct {
	ParentID valueobjects.NodeID
	Type     string
	Title    string
	Tags     []string
	Position int
}

// UpdateNodeRequest carries a partial metadata update. Nil fields are
// left untouched.
type UpdateNodeRequest struct {
	Title        *string
	Tags         *[]string
	SetCustom    map[string]interface{}
	RemoveCustom []string
	Links        *[]entities.NodeLink
}

// GetNode loads one node.
func (m *StoreManager) GetNode(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	return ms.persistence.ReadNode(ctx, nodeID)
}

// GetNodes loads a batch of nodes, silently skipping ids that do not
// exist.
func (m *StoreManager) GetNodes(ctx context.Context, storeID valueobjects.StoreID, nodeIDs []valueobjects.NodeID) ([]*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, err := ms.persistence.ReadNode(ctx, id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// GetChildren loads a node's children in their stored order.
func (m *StoreManager) GetChildren(ctx context.Context, storeID valueobjects.StoreID, parentID valueobjects.NodeID) ([]*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	childIDs, err := ms.persistence.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Node, 0, len(childIDs))
	for _, id := range childIDs {
		child, err := ms.persistence.ReadNode(ctx, id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				m.logger.Warn("Child listed but not readable",
					zap.String("storeID", storeID.String()),
					zap.String("childID", id.String()),
				)
				continue
			}
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// ListNodeIDs returns every node id in a store.
func (m *StoreManager) ListNodeIDs(ctx context.Context, storeID valueobjects.StoreID) ([]valueobjects.NodeID, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	return ms.persistence.ListNodeIDs(ctx)
}

// CorruptedNodes lists the nodes whose content failed to decode.
func (m *StoreManager) CorruptedNodes(ctx context.Context, storeID valueobjects.StoreID) ([]valueobjects.NodeID, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	return ms.persistence.CorruptedNodes(), nil
}

// CreateNode creates a node under a parent, runs the type handler's
// initial content hook, persists child before parent and publishes the
// created event once both writes are durable.
func (m *StoreManager) CreateNode(ctx context.Context, storeID valueobjects.StoreID, req CreateNodeRequest) (*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	parentID := req.ParentID
	if parentID.IsZero() {
		parentID = ms.store.RootNodeID()
	}
	parent, err := ms.persistence.ReadNode(ctx, parentID)
	if err != nil {
		return nil, err
	}

	nodeType := req.Type
	if nodeType == "" {
		nodeType = entities.NodeTypeDocument
	}
	node := entities.NewNode(nodeType, parentID, req.Title)
	if len(req.Tags) > 0 {
		node.SetTags(req.Tags)
	}
	if init := m.registry.Resolve(nodeType).InitContent(); len(init) > 0 {
		node.SetContent(init)
	}

	if err := ms.persistence.WriteNode(ctx, node); err != nil {
		return nil, err
	}
	parent.AddChild(node.ID(), req.Position)
	if err := ms.persistence.WriteNode(ctx, parent); err != nil {
		return nil, err
	}

	m.publish(ctx, storeID, node.ID(), ports.ChangeCreated)
	return node, nil
}

// DeleteNode removes a node, and with the recursive flag its whole
// subtree. Cached documents for everything removed are dropped.
func (m *StoreManager) DeleteNode(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, recursive bool) error {
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
	if err := validators.ValidateDelete(node, recursive); err != nil {
		return err
	}

	removed := m.collectSubtree(ctx, ms, nodeID)
	if err := ms.persistence.DeleteNode(ctx, nodeID, recursive); err != nil {
		return err
	}
	for _, id := range removed {
		m.cache.Invalidate(storeID.String(), id.String())
	}

	m.publish(ctx, storeID, nodeID, ports.ChangeDeleted)
	return nil
}

func (m *StoreManager) collectSubtree(ctx context.Context, ms *managedStore, nodeID valueobjects.NodeID) []valueobjects.NodeID {
	var out []valueobjects.NodeID
	stack := []valueobjects.NodeID{nodeID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children, err := ms.persistence.ListChildren(ctx, cur)
		if err != nil {
			continue
		}
		stack = append(stack, children...)
	}
	return out
}

// MoveNode re-parents a node, refusing moves that would detach the root
// or fold the tree into a cycle. Within one parent it reorders.
func (m *StoreManager) MoveNode(ctx context.Context, storeID valueobjects.StoreID, nodeID, newParentID valueobjects.NodeID, position int) error {
	ms, err := m.resolve(storeID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	snapshot, err := ms.persistence.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := validators.ValidateMove(snapshot, nodeID, newParentID); err != nil {
		return err
	}

	node := snapshot[nodeID]
	oldParentID := node.ParentID()
	newParent := snapshot[newParentID]

	if oldParentID.Equals(newParentID) {
		newParent.RemoveChild(nodeID)
		newParent.AddChild(nodeID, position)
		if err := ms.persistence.WriteNode(ctx, newParent); err != nil {
			return err
		}
		m.publish(ctx, storeID, nodeID, ports.ChangeMoved)
		return nil
	}

	oldParent := snapshot[oldParentID]
	node.SetParent(newParentID)
	newParent.AddChild(nodeID, position)
	oldParent.RemoveChild(nodeID)

	// Child first: its parent pointer is the authority recovery trusts.
	if err := ms.persistence.WriteNode(ctx, node); err != nil {
		return err
	}
	if err := ms.persistence.WriteNode(ctx, newParent); err != nil {
		return err
	}
	if err := ms.persistence.WriteNode(ctx, oldParent); err != nil {
		return err
	}

	m.publish(ctx, storeID, nodeID, ports.ChangeMoved)
	return nil
}

// UpdateNodeMetadata applies a partial metadata update and returns the
// updated node.
func (m *StoreManager) UpdateNodeMetadata(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, req UpdateNodeRequest) (*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	node, err := ms.persistence.ReadNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		node.SetTitle(*req.Title)
	}
	if req.Tags != nil {
		node.SetTags(*req.Tags)
	}
	for key, value := range req.SetCustom {
		node.SetCustom(key, value)
	}
	for _, key := range req.RemoveCustom {
		node.RemoveCustom(key)
	}
	if req.Links != nil {
		node.SetLinks(*req.Links)
	}

	if err := ms.persistence.WriteNode(ctx, node); err != nil {
		return nil, err
	}
	m.publish(ctx, storeID, nodeID, ports.ChangeUpdated)
	return node, nil
}

// RefreshNode re-reads a node from disk after its files changed behind
// the process, drops the stale cached document and notifies listeners.
// Returns the refreshed node, or nil when the node is gone.
func (m *StoreManager) RefreshNode(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID) (*entities.Node, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	node, err := ms.persistence.RefreshNode(ctx, nodeID)
	m.cache.Invalidate(storeID.String(), nodeID.String())
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			m.publish(ctx, storeID, nodeID, ports.ChangeDeleted)
			return nil, nil
		}
		return nil, err
	}
	m.publish(ctx, storeID, nodeID, ports.ChangeUpdated)
	return node, nil
}

// AddAsset stores a binary attachment in a store's content-addressed
// asset area.
func (m *StoreManager) AddAsset(ctx context.Context, storeID valueobjects.StoreID, data []byte, ext string) (valueobjects.ContentHash, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return valueobjects.ContentHash{}, err
	}
	return ms.persistence.PutAsset(ctx, data, ext)
}

// GetAsset reads a stored attachment by hash.
func (m *StoreManager) GetAsset(ctx context.Context, storeID valueobjects.StoreID, hash valueobjects.ContentHash) ([]byte, error) {
	ms, err := m.resolve(storeID)
	if err != nil {
		return nil, err
	}
	return ms.persistence.OpenAsset(ctx, hash)
}

func (m *StoreManager) publish(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID, change ports.ChangeType) {
	m.bus.Publish(ctx, ports.NodeChangedEvent{
		StoreID: storeID,
		NodeID:  nodeID,
		Change:  change,
		At:      time.Now().UTC(),
	})
}
