package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/entities"
	"go.uber.org/zap"
)

// WorkspaceHandler serves the workspace document.
type WorkspaceHandler struct {
	repo   ports.WorkspaceRepository
	logger *zap.Logger
}

// NewWorkspaceHandler creates a workspace handler.
func NewWorkspaceHandler(repo ports.WorkspaceRepository, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{repo: repo, logger: logger}
}

// GetWorkspace handles GET /workspace, creating the document on first
// use.
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.repo.Load(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// PutWorkspace handles PUT /workspace: the UI collaborator persists its
// whole view state in one write.
func (h *WorkspaceHandler) PutWorkspace(w http.ResponseWriter, r *http.Request) {
	var ws entities.Workspace
	if err := json.NewDecoder(r.Body).Decode(&ws); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if ws.ID.IsZero() {
		badRequest(w, "workspace id is required")
		return
	}
	if err := h.repo.Save(r.Context(), &ws); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}
