// Package rpc is the reference HTTP boundary: thin handlers that marshal
// requests into store manager calls and results back into JSON. Nothing
// here owns state; every error is the core's tagged error mapped to a
// status code.
package rpc

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

// errorResponse is the wire shape of a failed call.
type errorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the core's error taxonomy across the boundary.
type ErrorBody struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps a core error onto its HTTP representation. Unclassified
// errors are treated as internal and their detail is not leaked.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		logger.Error("Unclassified error crossing the boundary", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrorBody{
			Type:    string(pkgerrors.ErrorTypeInternal),
			Message: "internal error",
		}})
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		logger.Error("Request failed", zap.String("type", string(appErr.Type)), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: ErrorBody{
		Type:    string(appErr.Type),
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrorBody{
		Type:    string(pkgerrors.ErrorTypeValidation),
		Message: message,
	}})
}
