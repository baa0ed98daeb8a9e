package http

import (
	"errors"
	"net/http"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/jwtx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

// writeServiceError maps service-layer sentinels to response bodies. Auth
// failures stay generic; the specific cause only reaches the log line.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidGrant):
		httpx.WriteError(w, r, httpx.ErrInvalidGrant)
	case errors.Is(err, domain.ErrUnsupportedGrant):
		httpx.WriteError(w, r, httpx.ErrUnsupportedGrantType)
	case errors.Is(err, domain.ErrAccessDenied):
		slogx.FromContext(r.Context()).Info("request denied", "err", err)
		httpx.WriteError(w, r, httpx.ErrForbidden)
	case errors.Is(err, jwtx.ErrFederationDenied):
		slogx.FromContext(r.Context()).Info("federation token rejected", "err", err)
		httpx.WriteError(w, r, httpx.ErrUnauthorized)
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, r, httpx.ErrNotFound)
	case errors.Is(err, domain.ErrUsernameTaken):
		httpx.WriteError(w, r, &httpx.Error{
			Code:        "invalid_request",
			Description: "username already taken",
			Status:      http.StatusConflict,
		})
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, r, httpx.ErrServerError)
	}
}
