// Package httputil writes JSON responses for the ops endpoints.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "doiregistrar/pkg/domain-errors"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's kind to an HTTP status. Internal failures never
// expose their message.
func WriteError(w http.ResponseWriter, err error) {
	kind := dErrors.KindOf(err)
	body := map[string]string{"error": string(kind)}
	status := StatusFor(kind)
	if status < http.StatusInternalServerError {
		body["error_description"] = err.Error()
	}
	WriteJSON(w, status, body)
}

func StatusFor(kind dErrors.Kind) int {
	switch kind {
	case dErrors.KindInvalidInput:
		return http.StatusBadRequest
	case dErrors.KindNotFound:
		return http.StatusNotFound
	case dErrors.KindNotDraft:
		return http.StatusConflict
	case dErrors.KindUpstream, dErrors.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
