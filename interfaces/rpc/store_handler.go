package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/entities"
	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// StoreHandler serves the store lifecycle endpoints.
type StoreHandler struct {
	manager *services.StoreManager
	logger  *zap.Logger
}

// NewStoreHandler creates a store handler.
func NewStoreHandler(manager *services.StoreManager, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{manager: manager, logger: logger}
}

// CreateStore handles POST /stores.
func (h *StoreHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	store, err := h.manager.CreateStore(r.Context(), entities.NewLocalLocation(req.Path), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreResponse(store))
}

// OpenStore handles POST /stores/open.
func (h *StoreHandler) OpenStore(w http.ResponseWriter, r *http.Request) {
	var req OpenStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	store, err := h.manager.OpenStore(r.Context(), entities.NewLocalLocation(req.Path))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreResponse(store))
}

// ListStores handles GET /stores.
func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores := h.manager.ListStores(r.Context())
	out := make([]StoreResponse, len(stores))
	for i, s := range stores {
		out[i] = toStoreResponse(s)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stores": out})
}

// GetStore handles GET /stores/{storeID}.
func (h *StoreHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	for _, s := range h.manager.ListStores(r.Context()) {
		if s.ID().Equals(storeID) {
			writeJSON(w, http.StatusOK, toStoreResponse(s))
			return
		}
	}
	writeError(w, h.logger, pkgerrors.NewStoreNotOpenError(storeID.String()))
}

// CloseStore handles POST /stores/{storeID}/close.
func (h *StoreHandler) CloseStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	if err := h.manager.CloseStore(r.Context(), storeID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// DeleteStore handles DELETE /stores/{storeID}: the explicit destroy that
// removes the whole directory.
func (h *StoreHandler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeleteStore(r.Context(), storeID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// FlushStore handles POST /stores/{storeID}/flush.
func (h *StoreHandler) FlushStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Flush(r.Context(), storeID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

// FlushAll handles POST /flush.
func (h *StoreHandler) FlushAll(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.FlushAll(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

// SweepAssets handles POST /stores/{storeID}/sweep.
func (h *StoreHandler) SweepAssets(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathStoreID(w, r)
	if !ok {
		return
	}
	removed, err := h.manager.SweepAssets(r.Context(), storeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

