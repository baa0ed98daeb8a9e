package httpx

import "net/http"

// Error is a JSON error body in the RFC 6749 style used across the API, not
// just on the token endpoint.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`

	// Status is the HTTP status to respond with. Not serialized.
	Status int `json:"-"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Description }

// WriteError writes e as the response body with its status.
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	NoCache(w)
	WriteJSON(w, r, e.Status, e)
}

// Canonical error bodies. Descriptions stay generic on purpose: failure
// details belong in logs, not responses.
var (
	ErrInvalidRequest = &Error{
		Code:        "invalid_request",
		Description: "the request is missing a required parameter or is otherwise malformed",
		Status:      http.StatusBadRequest,
	}
	ErrInvalidClient = &Error{
		Code:        "invalid_client",
		Description: "client authentication failed",
		Status:      http.StatusUnauthorized,
	}
	ErrInvalidGrant = &Error{
		Code:        "invalid_grant",
		Description: "the provided credential is invalid, expired or revoked",
		Status:      http.StatusBadRequest,
	}
	ErrUnsupportedGrantType = &Error{
		Code:        "unsupported_grant_type",
		Description: "the authorization grant type is not supported",
		Status:      http.StatusBadRequest,
	}
	ErrUnauthorized = &Error{
		Code:        "unauthorized",
		Description: "authentication required",
		Status:      http.StatusUnauthorized,
	}
	ErrForbidden = &Error{
		Code:        "forbidden",
		Description: "insufficient privileges for this resource",
		Status:      http.StatusForbidden,
	}
	ErrNotFound = &Error{
		Code:        "not_found",
		Description: "the requested resource does not exist",
		Status:      http.StatusNotFound,
	}
	ErrRateLimited = &Error{
		Code:        "rate_limited",
		Description: "too many requests, slow down",
		Status:      http.StatusTooManyRequests,
	}
	ErrServerError = &Error{
		Code:        "server_error",
		Description: "an internal error occurred",
		Status:      http.StatusInternalServerError,
	}
)
