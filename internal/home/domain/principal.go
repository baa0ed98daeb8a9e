package domain

import "github.com/hearth-im/hearth/pkg/idx"

// Principal is the authenticated caller of a request: either a local client
// acting for a user, or a peer home server speaking for itself and
// optionally for one of its users. The two concrete types below are the only
// implementations.
type Principal interface {
	principal()
}

// ClientPrincipal is a local user authenticated via an access token. Only
// token-derived fields live here; authoritative user state (such as the host
// admin flag) is fetched from storage during authorization.
type ClientPrincipal struct {
	UserID   idx.ID
	ClientID string
	Scope    string
}

func (ClientPrincipal) principal() {}

// FederationPrincipal is a peer home server authenticated via a federation
// token. User is nil for pure server-to-server calls.
type FederationPrincipal struct {
	Origin string
	User   *RemoteUser
}

func (FederationPrincipal) principal() {}

// RemoteUser is the delegated user a federation request acts on behalf of.
type RemoteUser struct {
	Name   string
	Domain string
}
