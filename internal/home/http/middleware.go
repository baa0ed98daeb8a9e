// Package http is the transport layer: routing, bearer authentication,
// request decoding and error mapping. Policy lives in the service layer;
// handlers here declare their AuthSpec and translate errors to JSON bodies.
package http

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/idx"
	"github.com/hearth-im/hearth/pkg/jwtx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// authenticator turns bearer tokens into principals. Local tokens (issuer is
// this server) go through the local verifier; anything else is treated as a
// federation token and resolved via the peer's JWKS.
type authenticator struct {
	verifier  *jwtx.Verifier
	resolver  *jwtx.Resolver
	serverURL string
}

// middleware rejects requests without a usable bearer token. Missing header,
// wrong scheme, garbage bytes and failed verification all get the same
// generic 401; the cause is only logged.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.WriteError(w, r, httpx.ErrUnauthorized)
			return
		}

		principal, err := a.resolve(r.Context(), token)
		if err != nil {
			slogx.FromContext(r.Context()).Info("bearer authentication failed", "err", err)
			httpx.WriteError(w, r, httpx.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *authenticator) resolve(ctx context.Context, token string) (domain.Principal, error) {
	if a.isLocalToken(token) {
		claims, err := a.verifier.Verify(token)
		if err != nil {
			return nil, err
		}
		return domain.ClientPrincipal{
			UserID:   idx.ID(claims.Subject),
			ClientID: claims.ClientID,
			Scope:    claims.Scope,
		}, nil
	}

	claims, err := a.resolver.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	p := domain.FederationPrincipal{Origin: claims.Issuer}
	if claims.User != nil {
		p.User = &domain.RemoteUser{Name: claims.User.Name, Domain: claims.User.Domain}
	}
	return p, nil
}

// isLocalToken peeks at the unverified issuer claim purely to pick a
// verifier. A forged issuer only routes the token to the wrong verifier,
// where it then fails signature checks.
func (a *authenticator) isLocalToken(token string) bool {
	_, issuer, err := jwtx.PeekIssuer(token)
	if err != nil {
		return true // let the local verifier produce the failure
	}
	return issuer == strings.TrimRight(a.serverURL, "/")
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !utf8.ValidString(header) {
		return "", false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// specFunc derives an operation's AuthSpec from the request, typically from
// path parameters. Static policy, parametrized only by route values.
type specFunc func(r *http.Request) domain.AuthSpec

// guard evaluates the route's AuthSpec before invoking the handler, which
// receives the resolved session.
func guard(ev *service.Evaluator, spec specFunc, h func(w http.ResponseWriter, r *http.Request, sess *service.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, r, httpx.ErrUnauthorized)
			return
		}
		sess, err := ev.Authorize(r.Context(), principal, spec(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		h(w, r, sess)
	}
}
