package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hearth-im/hearth/pkg/slogx"
)

// WriteJSON writes v as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogx.FromContext(r.Context()).Error("write json response", "err", err)
	}
}

// NoCache marks a response as uncacheable. Token responses must carry this
// per RFC 6749 §5.1.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// SplitScopes splits a space-delimited scope string into fields, tolerating
// repeated separators.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}
