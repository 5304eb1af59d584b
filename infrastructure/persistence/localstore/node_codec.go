package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

// nodeItem is the on-disk layout of nodes/<id>.json. Its field names are
// a compatibility contract; content bytes live next to it in <id>.content
// and HasContent says whether that file must exist.
type nodeItem struct {
	ID         string                 `json:"id"`
	ParentID   string                 `json:"parent_id,omitempty"`
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	CreatedAt  time.Time              `json:"created_at"`
	ModifiedAt time.Time              `json:"modified_at"`
	Tags       []string               `json:"tags,omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty"`
	Children   []string               `json:"children"`
	Links      []linkItem             `json:"links,omitempty"`
	HasContent bool                   `json:"has_content"`
}

type linkItem struct {
	Target       linkTargetItem `json:"target"`
	LinkType     string         `json:"link_type,omitempty"`
	SourceAnchor string         `json:"source_anchor,omitempty"`
}

type linkTargetItem struct {
	Kind   string `json:"kind"`
	NodeID string `json:"node_id,omitempty"`
	Anchor string `json:"anchor,omitempty"`
	URL    string `json:"url,omitempty"`
}

// nodeRecord is the in-memory mirror of one persisted node: its decoded
// metadata plus the raw content bytes and whatever damage was found.
type nodeRecord struct {
	item      nodeItem
	content   []byte
	corrupted bool
}

func itemFromNode(node *entities.Node) nodeItem {
	item := nodeItem{
		ID:         node.ID().String(),
		Type:       node.Type(),
		Title:      node.Title(),
		CreatedAt:  node.CreatedAt(),
		ModifiedAt: node.ModifiedAt(),
		Tags:       node.Tags(),
		Custom:     node.Custom(),
		Children:   make([]string, 0, node.ChildCount()),
		HasContent: len(node.Content()) > 0,
	}
	if !node.ParentID().IsZero() {
		item.ParentID = node.ParentID().String()
	}
	if len(item.Tags) == 0 {
		item.Tags = nil
	}
	if len(item.Custom) == 0 {
		item.Custom = nil
	}
	for _, child := range node.Children() {
		item.Children = append(item.Children, child.String())
	}
	for _, link := range node.Links() {
		item.Links = append(item.Links, linkItem{
			Target: linkTargetItem{
				Kind:   string(link.Target.Kind),
				NodeID: idString(link.Target.NodeID),
				Anchor: link.Target.Anchor,
				URL:    link.Target.URL,
			},
			LinkType:     link.LinkType,
			SourceAnchor: link.SourceAnchor,
		})
	}
	return item
}

func nodeFromRecord(rec *nodeRecord) (*entities.Node, error) {
	item := rec.item
	id, err := valueobjects.NewNodeIDFromString(item.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid node id %q: %w", item.ID, err)
	}
	var parentID valueobjects.NodeID
	if item.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(item.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id %q on node %s: %w", item.ParentID, item.ID, err)
		}
	}
	children := make([]valueobjects.NodeID, 0, len(item.Children))
	for _, raw := range item.Children {
		childID, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid child id %q on node %s: %w", raw, item.ID, err)
		}
		children = append(children, childID)
	}
	links := make([]entities.NodeLink, 0, len(item.Links))
	for _, li := range item.Links {
		var targetID valueobjects.NodeID
		if li.Target.NodeID != "" {
			targetID, err = valueobjects.NewNodeIDFromString(li.Target.NodeID)
			if err != nil {
				return nil, fmt.Errorf("invalid link target %q on node %s: %w", li.Target.NodeID, item.ID, err)
			}
		}
		links = append(links, entities.NodeLink{
			Target: entities.LinkTarget{
				Kind:   entities.LinkTargetKind(li.Target.Kind),
				NodeID: targetID,
				Anchor: li.Target.Anchor,
				URL:    li.Target.URL,
			},
			LinkType:     li.LinkType,
			SourceAnchor: li.SourceAnchor,
		})
	}
	if len(links) == 0 {
		links = nil
	}

	content := make([]byte, len(rec.content))
	copy(content, rec.content)

	// The record stays resident; the entity must not alias its slices or maps.
	var tags []string
	if len(item.Tags) > 0 {
		tags = make([]string, len(item.Tags))
		copy(tags, item.Tags)
	}
	var custom map[string]interface{}
	if len(item.Custom) > 0 {
		custom = make(map[string]interface{}, len(item.Custom))
		for k, v := range item.Custom {
			custom[k] = v
		}
	}

	node := entities.ReconstructNode(
		id, parentID, item.Type, item.Title,
		item.CreatedAt, item.ModifiedAt,
		tags, custom,
		content, children, links,
	)
	if rec.corrupted {
		node.MarkContentCorrupted()
	}
	return node, nil
}

func decodeNodeItem(data []byte) (nodeItem, error) {
	var item nodeItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nodeItem{}, err
	}
	if item.ID == "" {
		return nodeItem{}, fmt.Errorf("node file missing id")
	}
	return item, nil
}

func idString(id valueobjects.NodeID) string {
	if id.IsZero() {
		return ""
	}
	return id.String()
}
