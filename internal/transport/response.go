// Package transport defines the JSON response envelope every endpoint
// uses, so clients see one error shape across catalog, checkout and the
// admin console.
package transport

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the wire shape of every non-2xx body. Details maps
// field names to the validation tag that rejected them.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details})
}
