package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

func TestCreateNodeUnderRoot(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "basic")

	node, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{
		Title:    "First note",
		Tags:     []string{"inbox"},
		Position: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.NodeTypeDocument, node.Type())
	assert.True(t, node.ParentID().Equals(store.RootNodeID()))

	children, err := manager.GetChildren(ctx, store.ID(), store.RootNodeID())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].ID().Equals(node.ID()))
	assert.Equal(t, []string{"inbox"}, children[0].Tags())
}

func TestCreateNodeUnknownParent(t *testing.T) {
	manager := newTestManager(t)
	store, _ := createTestStore(t, manager, "orphanage")

	_, err := manager.CreateNode(context.Background(), store.ID(), CreateNodeRequest{
		ParentID: valueobjects.NewNodeID(),
		Position: -1,
	})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestConcurrentCreatesLoseNothing(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "racy")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = manager.CreateNode(ctx, store.ID(), CreateNodeRequest{
				Title:    fmt.Sprintf("note-%d", i),
				Position: -1,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "create %d", i)
	}

	children, err := manager.GetChildren(ctx, store.ID(), store.RootNodeID())
	require.NoError(t, err)
	require.Len(t, children, n)

	seen := make(map[string]bool, n)
	for _, child := range children {
		assert.False(t, seen[child.ID().String()], "duplicate child %s", child.ID())
		seen[child.ID().String()] = true
	}
}

func TestPositionalInsertAndMoveReorder(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "ordered")
	root := store.RootNodeID()

	a, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "a", Position: -1})
	require.NoError(t, err)
	b, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "b", Position: -1})
	require.NoError(t, err)
	c, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "c", Position: 0})
	require.NoError(t, err)

	assertChildOrder := func(want ...valueobjects.NodeID) {
		t.Helper()
		children, err := manager.GetChildren(ctx, store.ID(), root)
		require.NoError(t, err)
		require.Len(t, children, len(want))
		for i, id := range want {
			assert.True(t, children[i].ID().Equals(id), "position %d", i)
		}
	}
	assertChildOrder(c.ID(), a.ID(), b.ID())

	// Same-parent move is a reorder.
	require.NoError(t, manager.MoveNode(ctx, store.ID(), b.ID(), root, 0))
	assertChildOrder(b.ID(), c.ID(), a.ID())
}

func TestMoveNodeReparents(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "reparent")

	folder, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Type: entities.NodeTypeFolder, Title: "folder", Position: -1})
	require.NoError(t, err)
	note, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "note", Position: -1})
	require.NoError(t, err)

	require.NoError(t, manager.MoveNode(ctx, store.ID(), note.ID(), folder.ID(), -1))

	moved, err := manager.GetNode(ctx, store.ID(), note.ID())
	require.NoError(t, err)
	assert.True(t, moved.ParentID().Equals(folder.ID()))

	rootChildren, err := manager.GetChildren(ctx, store.ID(), store.RootNodeID())
	require.NoError(t, err)
	require.Len(t, rootChildren, 1)
	assert.True(t, rootChildren[0].ID().Equals(folder.ID()))
}

func TestMoveRefusesCycle(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "cyclic")

	outer, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "outer", Position: -1})
	require.NoError(t, err)
	inner, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{ParentID: outer.ID(), Title: "inner", Position: -1})
	require.NoError(t, err)

	err = manager.MoveNode(ctx, store.ID(), outer.ID(), inner.ID(), -1)
	assert.True(t, pkgerrors.IsStructuralViolation(err))

	// Moving a node under itself is the degenerate cycle.
	err = manager.MoveNode(ctx, store.ID(), outer.ID(), outer.ID(), -1)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
}

func TestMoveRefusesRoot(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "rooted")

	folder, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "folder", Position: -1})
	require.NoError(t, err)

	err = manager.MoveNode(ctx, store.ID(), store.RootNodeID(), folder.ID(), -1)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
}

func TestDeleteNodeRequiresRecursiveForSubtrees(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "pruned")

	parent, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "parent", Position: -1})
	require.NoError(t, err)
	child, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{ParentID: parent.ID(), Title: "child", Position: -1})
	require.NoError(t, err)
	grandchild, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{ParentID: child.ID(), Title: "grandchild", Position: -1})
	require.NoError(t, err)

	err = manager.DeleteNode(ctx, store.ID(), parent.ID(), false)
	assert.True(t, pkgerrors.IsHasChildren(err))

	require.NoError(t, manager.DeleteNode(ctx, store.ID(), parent.ID(), true))
	for _, id := range []valueobjects.NodeID{parent.ID(), child.ID(), grandchild.ID()} {
		_, err := manager.GetNode(ctx, store.ID(), id)
		assert.True(t, pkgerrors.IsNotFound(err), "node %s should be gone", id)
	}

	children, err := manager.GetChildren(ctx, store.ID(), store.RootNodeID())
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDeleteLeafWithoutRecursive(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "leafy")

	leaf, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "leaf", Position: -1})
	require.NoError(t, err)

	require.NoError(t, manager.DeleteNode(ctx, store.ID(), leaf.ID(), false))
	_, err = manager.GetNode(ctx, store.ID(), leaf.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUpdateNodeMetadata(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "meta")

	node, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "before", Position: -1})
	require.NoError(t, err)

	title := "after"
	tags := []string{"a", "b"}
	updated, err := manager.UpdateNodeMetadata(ctx, store.ID(), node.ID(), UpdateNodeRequest{
		Title:     &title,
		Tags:      &tags,
		SetCustom: map[string]interface{}{"color": "red"},
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title())
	assert.Equal(t, tags, updated.Tags())
	assert.Equal(t, "red", updated.Custom()["color"])

	_, err = manager.UpdateNodeMetadata(ctx, store.ID(), node.ID(), UpdateNodeRequest{
		RemoveCustom: []string{"color"},
	})
	require.NoError(t, err)
	got, err := manager.GetNode(ctx, store.ID(), node.ID())
	require.NoError(t, err)
	assert.NotContains(t, got.Custom(), "color")
}

func TestGetNodesSkipsMissing(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	store, _ := createTestStore(t, manager, "batch")

	node, err := manager.CreateNode(ctx, store.ID(), CreateNodeRequest{Title: "real", Position: -1})
	require.NoError(t, err)

	nodes, err := manager.GetNodes(ctx, store.ID(), []valueobjects.NodeID{
		node.ID(), valueobjects.NewNodeID(),
	})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].ID().Equals(node.ID()))
}
