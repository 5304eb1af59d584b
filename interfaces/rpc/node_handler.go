package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"go.uber.org/zap"
)

// NodeHandler serves the structural node endpoints.
type NodeHandler struct {
	manager *services.StoreManager
	logger  *zap.Logger
}

// NewNodeHandler creates a node handler.
func NewNodeHandler(manager *services.StoreManager, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{manager: manager, logger: logger}
}

// CreateNode handles POST /stores/{storeID}/nodes.
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	svcReq := services.CreateNodeRequest{
		Type:     req.Type,
		Title:    req.Title,
		Tags:     req.Tags,
		Position: -1,
	}
	if req.Position != nil {
		svcReq.Position = *req.Position
	}
	if req.ParentID != "" {
		parentID, err := valueobjects.NewNodeIDFromString(req.ParentID)
		if err != nil {
			badRequest(w, "invalid parent id")
			return
		}
		svcReq.ParentID = parentID
	}

	node, err := h.manager.CreateNode(r.Context(), storeID, svcReq)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNodeResponse(node))
}

// GetNode handles GET /stores/{storeID}/nodes/{nodeID}.
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	node, err := h.manager.GetNode(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(node))
}

// ListNodes handles GET /stores/{storeID}/nodes: every node id, plus the
// ones whose content is known corrupted.
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	ids, err := h.manager.ListNodeIDs(r.Context(), storeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	corrupted, err := h.manager.CorruptedNodes(r.Context(), storeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := map[string]interface{}{
		"node_ids":  idStrings(ids),
		"corrupted": idStrings(corrupted),
	}
	writeJSON(w, http.StatusOK, out)
}

// GetChildren handles GET /stores/{storeID}/nodes/{nodeID}/children.
func (h *NodeHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	children, err := h.manager.GetChildren(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"children": toNodeResponses(children)})
}

// UpdateNode handles PATCH /stores/{storeID}/nodes/{nodeID}.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	node, err := h.manager.UpdateNodeMetadata(r.Context(), storeID, nodeID, services.UpdateNodeRequest{
		Title:        req.Title,
		Tags:         req.Tags,
		SetCustom:    req.SetCustom,
		RemoveCustom: req.RemoveCustom,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(node))
}

// DeleteNode handles DELETE /stores/{storeID}/nodes/{nodeID}?recursive=.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))

	if err := h.manager.DeleteNode(r.Context(), storeID, nodeID, recursive); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// MoveNode handles POST /stores/{storeID}/nodes/{nodeID}/move.
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req MoveNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}
	newParentID, err := valueobjects.NewNodeIDFromString(req.NewParentID)
	if err != nil {
		badRequest(w, "invalid parent id")
		return
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}
	if err := h.manager.MoveNode(r.Context(), storeID, nodeID, newParentID, position); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

func pathStoreID(w http.ResponseWriter, r *http.Request) (valueobjects.StoreID, bool) {
	id, err := valueobjects.NewStoreIDFromString(chi.URLParam(r, "storeID"))
	if err != nil {
		badRequest(w, "invalid store id")
		return valueobjects.StoreID{}, false
	}
	return id, true
}

func pathIDs(w http.ResponseWriter, r *http.Request) (valueobjects.StoreID, valueobjects.NodeID, bool) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return valueobjects.StoreID{}, valueobjects.NodeID{}, false
	}
	nodeID, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		badRequest(w, "invalid node id")
		return valueobjects.StoreID{}, valueobjects.NodeID{}, false
	}
	return storeID, nodeID, true
}

func idStrings(ids []valueobjects.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
