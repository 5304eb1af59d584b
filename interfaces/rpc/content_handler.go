package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"go.uber.org/zap"
)

// maxAssetSize bounds one uploaded attachment.
const maxAssetSize = 64 << 20

// ContentHandler serves the document body endpoints: text, fields,
// rendering, change-sets and assets.
type ContentHandler struct {
	manager *services.StoreManager
	logger  *zap.Logger
}

// NewContentHandler creates a content handler.
func NewContentHandler(manager *services.StoreManager, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{manager: manager, logger: logger}
}

// GetText handles GET /stores/{storeID}/nodes/{nodeID}/text.
func (h *ContentHandler) GetText(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	text, err := h.manager.NodeText(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// SetText handles PUT /stores/{storeID}/nodes/{nodeID}/text.
func (h *ContentHandler) SetText(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req SetTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.manager.SetNodeText(r.Context(), storeID, nodeID, req.Text); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// GetFields handles GET /stores/{storeID}/nodes/{nodeID}/fields.
func (h *ContentHandler) GetFields(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	fields, err := h.manager.NodeFields(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}

// SetField handles PUT /stores/{storeID}/nodes/{nodeID}/fields.
func (h *ContentHandler) SetField(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.manager.SetNodeField(r.Context(), storeID, nodeID, req.Field, req.Value); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Render handles GET /stores/{storeID}/nodes/{nodeID}/render.
func (h *ContentHandler) Render(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	out, err := h.manager.RenderNode(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"format": out.Format, "data": out.Data})
}

// GetHeads handles GET /stores/{storeID}/nodes/{nodeID}/heads.
func (h *ContentHandler) GetHeads(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	heads, err := h.manager.NodeHeads(r.Context(), storeID, nodeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"heads": heads})
}

// GetChanges handles POST /stores/{storeID}/nodes/{nodeID}/changes: the
// change-set export side of sync.
func (h *ContentHandler) GetChanges(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req ChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	changes, err := h.manager.NodeChanges(r.Context(), storeID, nodeID, req.Since)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": changes})
}

// ApplyChanges handles POST /stores/{storeID}/nodes/{nodeID}/apply: the
// merge side of sync, the same path a local edit takes.
func (h *ContentHandler) ApplyChanges(w http.ResponseWriter, r *http.Request) {
	storeID, nodeID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req ApplyChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.manager.ApplyNodeChanges(r.Context(), storeID, nodeID, req.Changes); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "merged"})
}

// PutAsset handles POST /stores/{storeID}/assets?ext=png with the raw
// bytes as the body.
func (h *ContentHandler) PutAsset(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	ext := strings.TrimPrefix(r.URL.Query().Get("ext"), ".")
	if ext == "" {
		badRequest(w, "missing ext query parameter")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAssetSize+1))
	if err != nil {
		badRequest(w, "failed to read body: "+err.Error())
		return
	}
	if len(data) > maxAssetSize {
		badRequest(w, "asset too large")
		return
	}

	hash, err := h.manager.AddAsset(r.Context(), storeID, data, ext)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hash": hash.Filename()})
}

// GetAsset handles GET /stores/{storeID}/assets/{hash}.
func (h *ContentHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	hash, err := valueobjects.NewContentHashFromFilename(chi.URLParam(r, "hash"))
	if err != nil {
		badRequest(w, "invalid asset hash")
		return
	}
	data, err := h.manager.GetAsset(r.Context(), storeID, hash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
