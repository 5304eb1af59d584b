package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

func TestNewNode(t *testing.T) {
	parent := valueobjects.NewNodeID()
	n := NewNode(NodeTypeDocument, parent, "Reading notes")

	assert.False(t, n.ID().IsZero())
	assert.True(t, n.ParentID().Equals(parent))
	assert.False(t, n.IsRoot())
	assert.Equal(t, NodeTypeDocument, n.Type())
	assert.Equal(t, "Reading notes", n.Title())
	assert.Equal(t, n.CreatedAt(), n.ModifiedAt())
	assert.Empty(t, n.Children())
	assert.False(t, n.ContentCorrupted())
}

func TestNewFolderNode_IsRoot(t *testing.T) {
	root := NewFolderNode("My Store")

	assert.True(t, root.IsRoot())
	assert.Equal(t, NodeTypeFolder, root.Type())
}

func TestNode_AddChild(t *testing.T) {
	a := valueobjects.NewNodeID()
	b := valueobjects.NewNodeID()
	c := valueobjects.NewNodeID()

	tests := []struct {
		name      string
		build     func(n *Node)
		wantOrder []valueobjects.NodeID
	}{
		{
			name: "append in order",
			build: func(n *Node) {
				n.AddChild(a, -1)
				n.AddChild(b, -1)
			},
			wantOrder: []valueobjects.NodeID{a, b},
		},
		{
			name: "insert at front",
			build: func(n *Node) {
				n.AddChild(a, -1)
				n.AddChild(b, 0)
			},
			wantOrder: []valueobjects.NodeID{b, a},
		},
		{
			name: "insert in middle",
			build: func(n *Node) {
				n.AddChild(a, -1)
				n.AddChild(b, -1)
				n.AddChild(c, 1)
			},
			wantOrder: []valueobjects.NodeID{a, c, b},
		},
		{
			name: "position past end appends",
			build: func(n *Node) {
				n.AddChild(a, -1)
				n.AddChild(b, 99)
			},
			wantOrder: []valueobjects.NodeID{a, b},
		},
		{
			name: "duplicate is a no-op",
			build: func(n *Node) {
				n.AddChild(a, -1)
				n.AddChild(a, 0)
			},
			wantOrder: []valueobjects.NodeID{a},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewFolderNode("parent")
			tt.build(n)
			assert.Equal(t, tt.wantOrder, n.Children())
		})
	}
}

func TestNode_RemoveChild(t *testing.T) {
	n := NewFolderNode("parent")
	a := valueobjects.NewNodeID()
	b := valueobjects.NewNodeID()
	n.AddChild(a, -1)
	n.AddChild(b, -1)

	assert.True(t, n.RemoveChild(a))
	assert.Equal(t, []valueobjects.NodeID{b}, n.Children())
	assert.False(t, n.RemoveChild(a), "second remove reports absence")
	assert.Equal(t, 1, n.ChildCount())
}

func TestNode_ChildrenReturnsCopy(t *testing.T) {
	n := NewFolderNode("parent")
	n.AddChild(valueobjects.NewNodeID(), -1)

	got := n.Children()
	got[0] = valueobjects.NewNodeID()

	assert.NotEqual(t, got[0], n.Children()[0], "mutating the copy must not touch the node")
}

func TestNode_TouchIsMonotonic(t *testing.T) {
	n := NewFolderNode("x")
	before := n.ModifiedAt()

	time.Sleep(2 * time.Millisecond)
	n.Touch()
	first := n.ModifiedAt()
	assert.True(t, first.After(before))

	for i := 0; i < 100; i++ {
		n.Touch()
		next := n.ModifiedAt()
		assert.False(t, next.Before(first), "modified_at must never move backwards")
		first = next
	}
}

func TestNode_Metadata(t *testing.T) {
	n := NewNode(NodeTypeDocument, valueobjects.NewNodeID(), "title")

	n.SetTitle("better title")
	assert.Equal(t, "better title", n.Title())

	n.SetTags([]string{"go", "notes"})
	assert.Equal(t, []string{"go", "notes"}, n.Tags())

	n.SetCustom("color", "blue")
	assert.Equal(t, "blue", n.Custom()["color"])

	n.RemoveCustom("color")
	assert.NotContains(t, n.Custom(), "color")

	// Custom returns a copy
	n.SetCustom("pinned", true)
	m := n.Custom()
	m["pinned"] = false
	assert.Equal(t, true, n.Custom()["pinned"])
}

func TestNode_Content(t *testing.T) {
	n := NewNode(NodeTypeDocument, valueobjects.NewNodeID(), "doc")

	n.MarkContentCorrupted()
	assert.True(t, n.ContentCorrupted())

	n.SetContent([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, n.Content())
	assert.False(t, n.ContentCorrupted(), "a fresh write clears the corruption flag")
}

func TestNode_Links(t *testing.T) {
	n := NewNode(NodeTypeDocument, valueobjects.NewNodeID(), "doc")
	target := valueobjects.NewNodeID()

	n.AddLink(NodeLink{Target: NewNodeTarget(target), LinkType: "reference"})
	n.AddLink(NodeLink{Target: NewExternalTarget("https://example.com"), LinkType: "citation"})
	n.AddLink(NodeLink{Target: NewDeepTarget(target, "sec-2"), LinkType: "reference", SourceAnchor: "p4"})

	links := n.Links()
	require.Len(t, links, 3)
	assert.Equal(t, LinkTargetNode, links[0].Target.Kind)
	assert.Equal(t, LinkTargetExternal, links[1].Target.Kind)
	assert.Equal(t, "https://example.com", links[1].Target.URL)
	assert.Equal(t, "sec-2", links[2].Target.Anchor)
}

func TestReconstructNode(t *testing.T) {
	id := valueobjects.NewNodeID()
	parent := valueobjects.NewNodeID()
	child := valueobjects.NewNodeID()
	created := time.Now().UTC().Add(-time.Hour)
	modified := time.Now().UTC().Add(-time.Minute)

	n := ReconstructNode(
		id, parent, NodeTypeCanvas, "board",
		created, modified,
		[]string{"a"}, nil,
		[]byte("bytes"),
		[]valueobjects.NodeID{child},
		nil,
	)

	assert.True(t, n.ID().Equals(id))
	assert.True(t, n.ParentID().Equals(parent))
	assert.Equal(t, created, n.CreatedAt())
	assert.Equal(t, modified, n.ModifiedAt())
	assert.True(t, n.HasChild(child))
	assert.NotNil(t, n.Custom(), "nil custom map is normalized")
}
