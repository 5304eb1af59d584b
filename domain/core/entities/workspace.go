package entities

import (
	"time"

	"github.com/joeleaver/pimble/domain/core/valueobjects"
)

// CurrentWorkspaceVersion is the workspace file format this build writes.
const CurrentWorkspaceVersion = 1

// MaxRecentNodes caps the recently-visited list.
const MaxRecentNodes = 50

// DefaultTreePanelWidth is the initial tree panel width in pixels.
const DefaultTreePanelWidth = 250.0

// WorkspaceStore is one store reference inside a workspace, with the
// display state the user gave it. The workspace owns no node content.
type WorkspaceStore struct {
	ID            valueobjects.StoreID  `json:"id"`
	Name          string                `json:"name"`
	Location      StoreLocation         `json:"location"`
	DisplayName   string                `json:"display_name,omitempty"`
	Position      int                   `json:"position"`
	ExpandedNodes []valueobjects.NodeID `json:"expanded_nodes,omitempty"`
}

// EffectiveName returns the display name, falling back to the store name.
func (ws *WorkspaceStore) EffectiveName() string {
	if ws.DisplayName != "" {
		return ws.DisplayName
	}
	return ws.Name
}

// IsExpanded reports whether a node is expanded in the tree view
func (ws *WorkspaceStore) IsExpanded(id valueobjects.NodeID) bool {
	for _, n := range ws.ExpandedNodes {
		if n.Equals(id) {
			return true
		}
	}
	return false
}

// Expand marks a node expanded
func (ws *WorkspaceStore) Expand(id valueobjects.NodeID) {
	if ws.IsExpanded(id) {
		return
	}
	ws.ExpandedNodes = append(ws.ExpandedNodes, id)
}

// Collapse clears a node's expanded mark
func (ws *WorkspaceStore) Collapse(id valueobjects.NodeID) {
	for i, n := range ws.ExpandedNodes {
		if n.Equals(id) {
			ws.ExpandedNodes = append(ws.ExpandedNodes[:i], ws.ExpandedNodes[i+1:]...)
			return
		}
	}
}

// WorkspaceUIState is per-workspace view state.
type WorkspaceUIState struct {
	TreePanelWidth float64               `json:"tree_panel_width"`
	SelectedNode   *valueobjects.NodeID  `json:"selected_node,omitempty"`
	RecentNodes    []valueobjects.NodeID `json:"recent_nodes,omitempty"`
}

// Workspace is a user-level grouping of stores with display state. It is
// persisted as its own JSON document, separate from any store's data.
type Workspace struct {
	Version int                      `json:"version"`
	ID      valueobjects.WorkspaceID `json:"id"`
	Name    string                   `json:"name"`
	Stores  []WorkspaceStore         `json:"stores"`
	UIState WorkspaceUIState         `json:"ui_state"`
}

// NewWorkspace creates an empty named workspace.
func NewWorkspace(name string) *Workspace {
	return &Workspace{
		Version: CurrentWorkspaceVersion,
		ID:      valueobjects.NewWorkspaceID(),
		Name:    name,
		UIState: WorkspaceUIState{TreePanelWidth: DefaultTreePanelWidth},
	}
}

// AddStore appends a store reference at the end of the ordering. Adding a
// store already present is a no-op.
func (w *Workspace) AddStore(store *Store) {
	if w.StoreRef(store.ID()) != nil {
		return
	}
	w.Stores = append(w.Stores, WorkspaceStore{
		ID:       store.ID(),
		Name:     store.Name(),
		Location: store.Location(),
		Position: len(w.Stores),
	})
}

// RemoveStore drops a store reference and renumbers positions, reporting
// whether it was present.
func (w *Workspace) RemoveStore(id valueobjects.StoreID) bool {
	for i, s := range w.Stores {
		if s.ID.Equals(id) {
			w.Stores = append(w.Stores[:i], w.Stores[i+1:]...)
			for j := range w.Stores {
				w.Stores[j].Position = j
			}
			return true
		}
	}
	return false
}

// StoreRef returns the reference for a store id, or nil.
func (w *Workspace) StoreRef(id valueobjects.StoreID) *WorkspaceStore {
	for i := range w.Stores {
		if w.Stores[i].ID.Equals(id) {
			return &w.Stores[i]
		}
	}
	return nil
}

// SelectNode records a node visit: it becomes the selection and moves to
// the front of the recents list, which stays capped and duplicate-free.
func (w *Workspace) SelectNode(id valueobjects.NodeID) {
	w.UIState.SelectedNode = &id

	recents := make([]valueobjects.NodeID, 0, len(w.UIState.RecentNodes)+1)
	recents = append(recents, id)
	for _, r := range w.UIState.RecentNodes {
		if !r.Equals(id) {
			recents = append(recents, r)
		}
	}
	if len(recents) > MaxRecentNodes {
		recents = recents[:MaxRecentNodes]
	}
	w.UIState.RecentNodes = recents
}

// GoBack selects the previous entry in the recents list, reporting whether
// there was anywhere to go.
func (w *Workspace) GoBack() bool {
	if len(w.UIState.RecentNodes) < 2 {
		return false
	}
	w.UIState.RecentNodes = w.UIState.RecentNodes[1:]
	prev := w.UIState.RecentNodes[0]
	w.UIState.SelectedNode = &prev
	return true
}

// WorkspaceRef points at a workspace file on disk, for a recently-opened
// list kept outside any workspace.
type WorkspaceRef struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	LastOpened time.Time `json:"last_opened"`
}
