package httpapi

import (
	"encoding/json"
	"net/http"

	"llmapi/pkg/types"
)

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a consistent {"detail": ...} error payload.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, types.ErrorResponse{Detail: detail})
}
