package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
)

func decodeJSON(r *http.Request, v interface{}) error {
	return httpx.DecodeJSON(r.Body, v)
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	return httpx.ValidationDetails(errs)
}

func writeCachedJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

func encodeJSON(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
