package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marginalia-app/marginalia/internal/annotate"
	"github.com/marginalia-app/marginalia/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"message": message,
		"error":   code,
	})
}

// writeServiceError maps service-layer errors onto the API's status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var renderErr *annotate.RenderError
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "PDF not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrStoragePathMissing):
		writeError(w, http.StatusBadRequest, "STORAGE_PATH_MISSING", "PDF file path not found")
	case errors.Is(err, service.ErrNoAnnotatedVersion):
		writeError(w, http.StatusBadRequest, "NO_ANNOTATED_VERSION", "No annotated version available. Generate one first.")
	case errors.As(err, &renderErr):
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", "Failed to render annotated PDF")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
