package http

import (
	"net/http"

	"github.com/hearth-im/hearth/pkg/httpx"
)

type discoveryDoc struct {
	Issuer              string   `json:"issuer"`
	JWKSURI             string   `json:"jwks_uri"`
	TokenEndpoint       string   `json:"token_endpoint"`
	UserinfoEndpoint    string   `json:"userinfo_endpoint"`
	GrantTypesSupported []string `json:"grant_types_supported"`
	ScopesSupported     []string `json:"scopes_supported"`
}

func (h *handlers) openIDConfiguration(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, r, http.StatusOK, discoveryDoc{
		Issuer:              h.serverURL,
		JWKSURI:             h.serverURL + "/.well-known/jwks.json",
		TokenEndpoint:       h.serverURL + "/auth/token",
		UserinfoEndpoint:    h.serverURL + "/auth/userinfo",
		GrantTypesSupported: []string{"password", "refresh_token"},
		ScopesSupported:     []string{"openid", "chat", "federation"},
	})
}

func (h *handlers) jwks(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, r, http.StatusOK, h.identity.PublicJWKS())
}
