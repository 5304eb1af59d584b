package rpc

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/crdt"
)

var validate = validator.New()

// CreateStoreRequest creates a store at a local path.
type CreateStoreRequest struct {
	Path string `json:"path" validate:"required"`
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// OpenStoreRequest opens an existing store.
type OpenStoreRequest struct {
	Path string `json:"path" validate:"required"`
}

// CreateNodeRequest creates a node under a parent. An empty parent means
// the store root.
type CreateNodeRequest struct {
	ParentID string   `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	Type     string   `json:"type,omitempty" validate:"omitempty,max=64"`
	Title    string   `json:"title,omitempty" validate:"omitempty,max=500"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=32,dive,max=100"`
	// Position inserts at an index in the parent's child list; omitted
	// appends.
	Position *int `json:"position,omitempty"`
}

// UpdateNodeRequest applies a partial metadata update.
type UpdateNodeRequest struct {
	Title        *string                `json:"title,omitempty" validate:"omitempty,max=500"`
	Tags         *[]string              `json:"tags,omitempty" validate:"omitempty,max=32,dive,max=100"`
	SetCustom    map[string]interface{} `json:"set_custom,omitempty"`
	RemoveCustom []string               `json:"remove_custom,omitempty"`
}

// MoveNodeRequest re-parents or reorders a node.
type MoveNodeRequest struct {
	NewParentID string `json:"new_parent_id" validate:"required,uuid"`
	Position    *int   `json:"position,omitempty"`
}

// SetTextRequest replaces a node's text body.
type SetTextRequest struct {
	Text string `json:"text"`
}

// SetFieldRequest writes one document register.
type SetFieldRequest struct {
	Field string `json:"field" validate:"required,max=200"`
	Value string `json:"value"`
}

// ChangesRequest asks for the edits not covered by a marker. A nil
// marker defers to the store's persisted sync record.
type ChangesRequest struct {
	Since crdt.VersionVector `json:"since,omitempty"`
}

// ApplyChangesRequest merges an encoded change-set into a node.
type ApplyChangesRequest struct {
	Changes []byte `json:"changes" validate:"required"`
}

// StoreResponse is the wire form of a store descriptor.
type StoreResponse struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Location   entities.StoreLocation `json:"location"`
	RootNodeID string                 `json:"root_node_id"`
	SyncState  entities.SyncState     `json:"sync_state"`
}

func toStoreResponse(store *entities.Store) StoreResponse {
	return StoreResponse{
		ID:         store.ID().String(),
		Name:       store.Name(),
		Location:   store.Location(),
		RootNodeID: store.RootNodeID().String(),
		SyncState:  store.SyncState(),
	}
}

// NodeResponse is the wire form of a node. Content bytes never cross
// this boundary raw; callers go through the text/render endpoints.
type NodeResponse struct {
	ID               string                 `json:"id"`
	ParentID         string                 `json:"parent_id,omitempty"`
	Type             string                 `json:"type"`
	Title            string                 `json:"title"`
	CreatedAt        time.Time              `json:"created_at"`
	ModifiedAt       time.Time              `json:"modified_at"`
	Tags             []string               `json:"tags,omitempty"`
	Custom           map[string]interface{} `json:"custom,omitempty"`
	Children         []string               `json:"children"`
	Links            []entities.NodeLink    `json:"links,omitempty"`
	HasContent       bool                   `json:"has_content"`
	ContentCorrupted bool                   `json:"content_corrupted,omitempty"`
}

func toNodeResponse(node *entities.Node) NodeResponse {
	children := node.Children()
	childIDs := make([]string, len(children))
	for i, c := range children {
		childIDs[i] = c.String()
	}
	out := NodeResponse{
		ID:               node.ID().String(),
		Type:             node.Type(),
		Title:            node.Title(),
		CreatedAt:        node.CreatedAt(),
		ModifiedAt:       node.ModifiedAt(),
		Tags:             node.Tags(),
		Custom:           node.Custom(),
		Children:         childIDs,
		Links:            node.Links(),
		HasContent:       len(node.Content()) > 0,
		ContentCorrupted: node.ContentCorrupted(),
	}
	if !node.ParentID().IsZero() {
		out.ParentID = node.ParentID().String()
	}
	return out
}

func toNodeResponses(nodes []*entities.Node) []NodeResponse {
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = toNodeResponse(n)
	}
	return out
}

func validateStruct(v interface{}) error {
	return validate.Struct(v)
}
