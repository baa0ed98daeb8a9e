package http

import (
	"log/slog"
	"net/http"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/idx"
	"github.com/hearth-im/hearth/pkg/jwtx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

// Deps is everything the router needs, wired up by the app package.
type Deps struct {
	Logger    *slog.Logger
	ServerURL string

	Identity *jwtx.SigningIdentity
	Verifier *jwtx.Verifier
	Resolver *jwtx.Resolver

	Tokens    *service.TokenService
	Users     *service.UserService
	Community *service.CommunityService
	Evaluator *service.Evaluator

	Store store.Store
}

type handlers struct {
	serverURL string
	identity  *jwtx.SigningIdentity
	tokens    *service.TokenService
	users     *service.UserService
	community *service.CommunityService
	store     store.Store
}

// NewRouter builds the full route table. Each guarded route declares its
// AuthSpec right here, next to its registration, so the policy of the whole
// surface is readable in one screen.
func NewRouter(d Deps) http.Handler {
	h := &handlers{
		serverURL: d.ServerURL,
		identity:  d.Identity,
		tokens:    d.Tokens,
		users:     d.Users,
		community: d.Community,
		store:     d.Store,
	}
	authn := &authenticator{
		verifier:  d.Verifier,
		resolver:  d.Resolver,
		serverURL: d.ServerURL,
	}
	ev := d.Evaluator

	mux := http.NewServeMux()

	// Public surface.
	mux.HandleFunc("GET /.well-known/openid-configuration", h.openIDConfiguration)
	mux.HandleFunc("GET /.well-known/jwks.json", h.jwks)
	mux.HandleFunc("GET /livez", h.livez)
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.Handle("POST /auth/token",
		httpx.Chain(http.HandlerFunc(h.token), httpx.RateLimitByIP(5, 10)))
	mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.register), httpx.RateLimitByIP(1, 3)))

	// Authenticated surface. The AuthSpec literals are the whole policy.
	anyPrincipal := func(*http.Request) domain.AuthSpec { return domain.AuthSpec{} }
	forServer := func(mk func(idx.ID) domain.Requirement) specFunc {
		return func(r *http.Request) domain.AuthSpec {
			return domain.Require(mk(idx.ID(r.PathValue("server_id"))))
		}
	}
	statics := func(reqs ...domain.Requirement) specFunc {
		return func(*http.Request) domain.AuthSpec { return domain.Require(reqs...) }
	}

	authed := http.NewServeMux()
	authed.HandleFunc("GET /auth/userinfo", h.userinfo)
	authed.Handle("POST /servers", guard(ev, anyPrincipal, h.createServer))
	authed.Handle("GET /servers", guard(ev, anyPrincipal, h.listServers))
	authed.Handle("GET /servers/{server_id}", guard(ev, forServer(domain.ServerMember), h.getServer))
	authed.Handle("DELETE /servers/{server_id}", guard(ev, statics(domain.HostAdmin()), h.deleteServer))
	authed.Handle("POST /servers/{server_id}/members", guard(ev, forServer(domain.ServerAdmin), h.addMember))
	authed.Handle("GET /servers/{server_id}/members", guard(ev, statics(domain.Federation()), h.listMembers))
	authed.Handle("POST /servers/{server_id}/channels", guard(ev, forServer(domain.ServerMember), h.createChannel))
	authed.Handle("GET /servers/{server_id}/channels", guard(ev, forServer(domain.ServerMember), h.listChannels))
	authed.Handle("DELETE /servers/{server_id}/channels/{channel_id}", guard(ev, forServer(domain.ServerAdmin), h.deleteChannel))
	authed.Handle("POST /servers/{server_id}/channels/{channel_id}/messages", guard(ev, forServer(domain.ServerMember), h.postMessage))
	authed.Handle("GET /servers/{server_id}/channels/{channel_id}/messages", guard(ev, forServer(domain.ServerMember), h.listMessages))

	mux.Handle("/", authn.middleware(authed))

	return httpx.Chain(mux, slogx.HTTPMiddleware(d.Logger))
}
