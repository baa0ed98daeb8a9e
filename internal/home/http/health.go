package http

import (
	"net/http"

	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

func (h *handlers) livez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slogx.FromContext(r.Context()).Error("readiness probe failed", "err", err)
		httpx.WriteJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
