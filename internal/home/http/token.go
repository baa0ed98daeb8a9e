package http

import (
	"errors"
	"net/http"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/idx"
)

// token handles POST /auth/token, the RFC 6749-style form-encoded endpoint.
func (h *handlers) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}

	req := service.GrantRequest{
		GrantType:    r.PostFormValue("grant_type"),
		Username:     r.PostFormValue("username"),
		Password:     r.PostFormValue("password"),
		RefreshToken: r.PostFormValue("refresh_token"),
		ClientID:     r.PostFormValue("client_id"),
		Scope:        r.PostFormValue("scope"),
	}
	if req.GrantType == "" {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}

	pair, err := h.tokens.HandleGrant(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, r, http.StatusOK, pair)
}

type userinfoResponse struct {
	Sub         string `json:"sub"`
	Username    string `json:"username"`
	IsHostAdmin bool   `json:"is_host_admin"`
}

// userinfo handles GET /auth/userinfo for local bearer tokens.
func (h *handlers) userinfo(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.ErrUnauthorized)
		return
	}
	cp, ok := principal.(domain.ClientPrincipal)
	if !ok {
		httpx.WriteError(w, r, httpx.ErrForbidden)
		return
	}

	u, err := h.users.GetByID(r.Context(), cp.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.WriteError(w, r, httpx.ErrUnauthorized)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, r, http.StatusOK, userinfoResponse{
		Sub:         u.ID.String(),
		Username:    u.Username,
		IsHostAdmin: u.IsHostAdmin,
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       idx.ID `json:"id"`
	Username string `json:"username"`
}

// register handles POST /auth/register: open sign-up for local accounts.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || len(req.Password) < 12 {
		httpx.WriteError(w, r, &httpx.Error{
			Code:        "invalid_request",
			Description: "username and a password of at least 12 characters are required",
			Status:      http.StatusBadRequest,
		})
		return
	}

	u, err := h.users.Register(r.Context(), req.Username, req.Password, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusCreated, userResponse{ID: u.ID, Username: u.Username})
}
