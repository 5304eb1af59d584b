package entities

import (
	"time"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

// Known node types. The type tag is interpreted by the plugin collaborator;
// unknown tags degrade to a generic pass-through and never fail a load.
const (
	NodeTypeFolder   = "folder"
	NodeTypeDocument = "document"
	NodeTypeStore    = "store"
	NodeTypeImage    = "image"
	NodeTypeCanvas   = "canvas"
)

// LinkTargetKind discriminates the destinations a link can point at.
type LinkTargetKind string

const (
	LinkTargetNode     LinkTargetKind = "node"
	LinkTargetDeep     LinkTargetKind = "deep"
	LinkTargetExternal LinkTargetKind = "external"
)

// LinkTarget is the destination of an outgoing link: another node, a
// position inside another node's document, or an external URI.
type LinkTarget struct {
	Kind   LinkTargetKind      `json:"kind"`
	NodeID valueobjects.NodeID `json:"node_id,omitempty"`
	Anchor string              `json:"anchor,omitempty"`
	URL    string              `json:"url,omitempty"`
}

// NewNodeTarget links to a whole node
func NewNodeTarget(id valueobjects.NodeID) LinkTarget {
	return LinkTarget{Kind: LinkTargetNode, NodeID: id}
}

// NewDeepTarget links to an anchor inside another node's document
func NewDeepTarget(id valueobjects.NodeID, anchor string) LinkTarget {
	return LinkTarget{Kind: LinkTargetDeep, NodeID: id, Anchor: anchor}
}

// NewExternalTarget links to a URI outside any store
func NewExternalTarget(url string) LinkTarget {
	return LinkTarget{Kind: LinkTargetExternal, URL: url}
}

// NodeLink is one outgoing reference from a node.
type NodeLink struct {
	Target       LinkTarget `json:"target"`
	LinkType     string     `json:"link_type"`
	SourceAnchor string     `json:"source_anchor,omitempty"`
}

// Node is the atomic content unit of a store: a typed entry in the tree
// carrying metadata, an opaque mergeable document body, an ordered child
// list and outgoing links.
type Node struct {
	id       valueobjects.NodeID
	parentID valueobjects.NodeID // zero only for a store's root
	nodeType string

	title      string
	createdAt  time.Time
	modifiedAt time.Time
	tags       []string
	custom     map[string]interface{}

	// content is the document engine's serialization; it is never edited
	// outside the engine API.
	content          []byte
	contentCorrupted bool

	children []valueobjects.NodeID
	links    []NodeLink
}

// NewNode creates a node of the given type under the given parent.
func NewNode(nodeType string, parentID valueobjects.NodeID, title string) *Node {
	now := time.Now().UTC()
	return &Node{
		id:         valueobjects.NewNodeID(),
		parentID:   parentID,
		nodeType:   nodeType,
		title:      title,
		createdAt:  now,
		modifiedAt: now,
		custom:     make(map[string]interface{}),
	}
}

// NewFolderNode creates a folder, the type used for store roots.
func NewFolderNode(title string) *Node {
	return NewNode(NodeTypeFolder, valueobjects.NodeID{}, title)
}

// ReconstructNode rebuilds a node from persisted state. It performs no
// validation beyond what the fields carry; persistence is trusted here and
// tree-level checks happen in the validators package.
func ReconstructNode(
	id valueobjects.NodeID,
	parentID valueobjects.NodeID,
	nodeType string,
	title string,
	createdAt time.Time,
	modifiedAt time.Time,
	tags []string,
	custom map[string]interface{},
	content []byte,
	children []valueobjects.NodeID,
	links []NodeLink,
) *Node {
	if custom == nil {
		custom = make(map[string]interface{})
	}
	return &Node{
		id:         id,
		parentID:   parentID,
		nodeType:   nodeType,
		title:      title,
		createdAt:  createdAt,
		modifiedAt: modifiedAt,
		tags:       tags,
		custom:     custom,
		content:    content,
		children:   children,
		links:      links,
	}
}

// ID returns the node identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// ParentID returns the parent identifier; zero for a store root
func (n *Node) ParentID() valueobjects.NodeID {
	return n.parentID
}

// IsRoot reports whether the node has no parent
func (n *Node) IsRoot() bool {
	return n.parentID.IsZero()
}

// Type returns the node's type tag
func (n *Node) Type() string {
	return n.nodeType
}

// Title returns the display title
func (n *Node) Title() string {
	return n.title
}

// CreatedAt returns the creation timestamp
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// ModifiedAt returns the last-modification timestamp
func (n *Node) ModifiedAt() time.Time {
	return n.modifiedAt
}

// Tags returns a copy of the tag set
func (n *Node) Tags() []string {
	out := make([]string, len(n.tags))
	copy(out, n.tags)
	return out
}

// Custom returns a copy of the open-ended extension map
func (n *Node) Custom() map[string]interface{} {
	out := make(map[string]interface{}, len(n.custom))
	for k, v := range n.custom {
		out[k] = v
	}
	return out
}

// Content returns the document engine's serialized bytes
func (n *Node) Content() []byte {
	return n.content
}

// ContentCorrupted reports whether the persisted content bytes failed to
// decode when the store was opened. Metadata stays readable regardless.
func (n *Node) ContentCorrupted() bool {
	return n.contentCorrupted
}

// MarkContentCorrupted flags the node after a failed content decode.
func (n *Node) MarkContentCorrupted() {
	n.contentCorrupted = true
}

// Children returns a copy of the ordered child list
func (n *Node) Children() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of direct children
func (n *Node) ChildCount() int {
	return len(n.children)
}

// HasChild reports whether the given id is a direct child
func (n *Node) HasChild(id valueobjects.NodeID) bool {
	for _, c := range n.children {
		if c.Equals(id) {
			return true
		}
	}
	return false
}

// Links returns a copy of the outgoing links
func (n *Node) Links() []NodeLink {
	out := make([]NodeLink, len(n.links))
	copy(out, n.links)
	return out
}

// Touch advances the modification timestamp. The timestamp never moves
// backwards, even under clock skew.
func (n *Node) Touch() {
	now := time.Now().UTC()
	if now.After(n.modifiedAt) {
		n.modifiedAt = now
	}
}

// SetTitle updates the display title
func (n *Node) SetTitle(title string) {
	n.title = title
	n.Touch()
}

// SetTags replaces the tag set
func (n *Node) SetTags(tags []string) {
	n.tags = make([]string, len(tags))
	copy(n.tags, tags)
	n.Touch()
}

// SetCustom sets one extension entry
func (n *Node) SetCustom(key string, value interface{}) {
	n.custom[key] = value
	n.Touch()
}

// RemoveCustom deletes one extension entry
func (n *Node) RemoveCustom(key string) {
	delete(n.custom, key)
	n.Touch()
}

// SetContent replaces the serialized document bytes. Only the document
// engine produces these.
func (n *Node) SetContent(content []byte) {
	n.content = content
	n.contentCorrupted = false
	n.Touch()
}

// SetParent re-parents the node. Tree-level cycle checks are the caller's
// responsibility.
func (n *Node) SetParent(parentID valueobjects.NodeID) {
	n.parentID = parentID
	n.Touch()
}

// AddChild inserts a child id at the given position; position < 0 or past
// the end appends. Adding an id already present is a no-op.
func (n *Node) AddChild(id valueobjects.NodeID, position int) {
	if n.HasChild(id) {
		return
	}
	if position < 0 || position >= len(n.children) {
		n.children = append(n.children, id)
	} else {
		n.children = append(n.children, valueobjects.NodeID{})
		copy(n.children[position+1:], n.children[position:])
		n.children[position] = id
	}
	n.Touch()
}

// RemoveChild deletes a child id, reporting whether it was present.
func (n *Node) RemoveChild(id valueobjects.NodeID) bool {
	for i, c := range n.children {
		if c.Equals(id) {
			n.children = append(n.children[:i], n.children[i+1:]...)
			n.Touch()
			return true
		}
	}
	return false
}

// AddLink appends an outgoing link
func (n *Node) AddLink(link NodeLink) {
	n.links = append(n.links, link)
	n.Touch()
}

// SetLinks replaces the outgoing links
func (n *Node) SetLinks(links []NodeLink) {
	n.links = make([]NodeLink, len(links))
	copy(n.links, links)
	n.Touch()
}
