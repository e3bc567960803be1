package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xomify/xomify/store"
)

// Error kinds surfaced in the {"error": kind, "message": msg} body.
const (
	errBadRequest  = "bad_request"
	errNotFound    = "not_found"
	errUnavailable = "unavailable"
	errInternal    = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"message": msg,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, errNotFound, "not found")
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusBadGateway, errUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, errInternal, "internal error")
	}
}
