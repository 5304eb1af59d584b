package validators

import (
	"fmt"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

// ValidateTree checks the structural invariants of one store's node set:
// every non-root node's parent is present and lists it as a child, every
// listed child points back at its parent, exactly one node is parentless,
// and the parent graph is acyclic. Pure function, no side effects; called
// before a structural change is committed.
func ValidateTree(nodes map[valueobjects.NodeID]*entities.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	var roots []valueobjects.NodeID
	for id, n := range nodes {
		if n.ParentID().IsZero() {
			roots = append(roots, id)
			continue
		}
		parent, ok := nodes[n.ParentID()]
		if !ok {
			return pkgerrors.NewStructuralViolationError(
				fmt.Sprintf("node %s declares parent %s which is not in the tree", id, n.ParentID()))
		}
		if !parent.HasChild(id) {
			return pkgerrors.NewStructuralViolationError(
				fmt.Sprintf("parent %s does not list node %s as a child", n.ParentID(), id))
		}
	}

	if len(roots) == 0 {
		return pkgerrors.NewStructuralViolationError("tree has no root").
			WithCode(pkgerrors.CodeCycleDetected)
	}
	if len(roots) > 1 {
		return pkgerrors.NewStructuralViolationError(
			fmt.Sprintf("tree has %d parentless nodes, expected exactly one root", len(roots)))
	}

	for id, n := range nodes {
		for _, childID := range n.Children() {
			child, ok := nodes[childID]
			if !ok {
				return pkgerrors.NewStructuralViolationError(
					fmt.Sprintf("node %s lists child %s which is not in the tree", id, childID))
			}
			if !child.ParentID().Equals(id) {
				return pkgerrors.NewStructuralViolationError(
					fmt.Sprintf("node %s lists child %s whose parent is %s", id, childID, child.ParentID()))
			}
		}
	}

	// Walk parent pointers from every node; revisiting a node on one walk
	// means the parent graph loops.
	for start := range nodes {
		seen := map[valueobjects.NodeID]bool{start: true}
		cur := start
		for {
			parentID := nodes[cur].ParentID()
			if parentID.IsZero() {
				break
			}
			if seen[parentID] {
				return pkgerrors.NewStructuralViolationError(
					fmt.Sprintf("cycle through node %s", parentID)).
					WithCode(pkgerrors.CodeCycleDetected)
			}
			seen[parentID] = true
			cur = parentID
		}
	}

	return nil
}

// ValidateMove checks that re-parenting a node keeps the tree a tree: the
// root stays put, a node never becomes its own ancestor, and the new
// parent exists.
func ValidateMove(nodes map[valueobjects.NodeID]*entities.Node, nodeID, newParentID valueobjects.NodeID) error {
	node, ok := nodes[nodeID]
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", nodeID))
	}
	if node.IsRoot() {
		return pkgerrors.NewStructuralViolationError("store root cannot be moved")
	}
	if nodeID.Equals(newParentID) {
		return pkgerrors.NewStructuralViolationError(
			fmt.Sprintf("node %s cannot be its own parent", nodeID)).
			WithCode(pkgerrors.CodeCycleDetected)
	}
	if _, ok := nodes[newParentID]; !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", newParentID))
	}

	// The new parent must not sit below the node being moved.
	cur := newParentID
	for {
		parent := nodes[cur].ParentID()
		if parent.IsZero() {
			return nil
		}
		if parent.Equals(nodeID) {
			return pkgerrors.NewStructuralViolationError(
				fmt.Sprintf("cannot move node %s under its own descendant %s", nodeID, newParentID)).
				WithCode(pkgerrors.CodeCycleDetected)
		}
		cur = parent
	}
}

// ValidateDelete checks that a delete keeps the tree rooted: the root node
// is never deletable, and a populated node requires the recursive flag.
func ValidateDelete(node *entities.Node, recursive bool) error {
	if node.IsRoot() {
		return pkgerrors.NewStructuralViolationError("store root cannot be deleted").
			WithCode(pkgerrors.CodeRootDelete)
	}
	if node.ChildCount() > 0 && !recursive {
		return pkgerrors.NewHasChildrenError(node.ID().String(), node.ChildCount())
	}
	return nil
}
