package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

// buildTree wires a root with two children and one grandchild:
//
//	root
//	├── a
//	│   └── c
//	└── b
func buildTree(t *testing.T) (map[valueobjects.NodeID]*entities.Node, *entities.Node, *entities.Node, *entities.Node, *entities.Node) {
	t.Helper()

	root := entities.NewFolderNode("root")
	a := entities.NewNode(entities.NodeTypeFolder, root.ID(), "a")
	b := entities.NewNode(entities.NodeTypeDocument, root.ID(), "b")
	c := entities.NewNode(entities.NodeTypeDocument, a.ID(), "c")
	root.AddChild(a.ID(), -1)
	root.AddChild(b.ID(), -1)
	a.AddChild(c.ID(), -1)

	nodes := map[valueobjects.NodeID]*entities.Node{
		root.ID(): root,
		a.ID():    a,
		b.ID():    b,
		c.ID():    c,
	}
	return nodes, root, a, b, c
}

func TestValidateTree_Valid(t *testing.T) {
	nodes, _, _, _, _ := buildTree(t)
	assert.NoError(t, ValidateTree(nodes))
}

func TestValidateTree_Empty(t *testing.T) {
	assert.NoError(t, ValidateTree(nil))
	assert.NoError(t, ValidateTree(map[valueobjects.NodeID]*entities.Node{}))
}

func TestValidateTree_ParentDoesNotListChild(t *testing.T) {
	nodes, root, a, _, _ := buildTree(t)
	root.RemoveChild(a.ID())

	err := ValidateTree(nodes)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
}

func TestValidateTree_ChildPointsElsewhere(t *testing.T) {
	nodes, _, a, b, c := buildTree(t)
	// b claims c as its child while c still declares a as parent
	b.AddChild(c.ID(), -1)
	_ = a

	err := ValidateTree(nodes)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
}

func TestValidateTree_UnknownParent(t *testing.T) {
	nodes, _, _, _, _ := buildTree(t)
	stray := entities.NewNode(entities.NodeTypeDocument, valueobjects.NewNodeID(), "stray")
	nodes[stray.ID()] = stray

	err := ValidateTree(nodes)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
}

func TestValidateTree_MultipleRoots(t *testing.T) {
	nodes, _, _, _, _ := buildTree(t)
	second := entities.NewFolderNode("another root")
	nodes[second.ID()] = second

	err := ValidateTree(nodes)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
	assert.Contains(t, err.Error(), "parentless")
}

func TestValidateTree_Cycle(t *testing.T) {
	nodes, _, a, _, c := buildTree(t)
	// a's parent becomes its own child c
	a.SetParent(c.ID())
	c.AddChild(a.ID(), -1)

	err := ValidateTree(nodes)
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeStructuralViolation, appErr.Type)
	assert.Equal(t, pkgerrors.CodeCycleDetected, appErr.Code)
}

func TestValidateMove(t *testing.T) {
	tests := []struct {
		name     string
		move     func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error
		wantErr  bool
		wantCode string
	}{
		{
			name: "valid reparent",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, c.ID(), b.ID())
			},
		},
		{
			name: "move root",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, root.ID(), a.ID())
			},
			wantErr: true,
		},
		{
			name: "self parent",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, a.ID(), a.ID())
			},
			wantErr:  true,
			wantCode: pkgerrors.CodeCycleDetected,
		},
		{
			name: "under own descendant",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, a.ID(), c.ID())
			},
			wantErr:  true,
			wantCode: pkgerrors.CodeCycleDetected,
		},
		{
			name: "unknown node",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, valueobjects.NewNodeID(), a.ID())
			},
			wantErr: true,
		},
		{
			name: "unknown target parent",
			move: func(nodes map[valueobjects.NodeID]*entities.Node, root, a, b, c *entities.Node) error {
				return ValidateMove(nodes, a.ID(), valueobjects.NewNodeID())
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, root, a, b, c := buildTree(t)
			err := tt.move(nodes, root, a, b, c)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantCode != "" {
				appErr := pkgerrors.GetAppError(err)
				require.NotNil(t, appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
			}
		})
	}
}

func TestValidateDelete(t *testing.T) {
	_, root, a, b, _ := buildTree(t)

	err := ValidateDelete(root, true)
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeRootDelete, appErr.Code)

	err = ValidateDelete(a, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsHasChildren(err))

	assert.NoError(t, ValidateDelete(a, true))
	assert.NoError(t, ValidateDelete(b, false), "leaf deletes never need the flag")
}
