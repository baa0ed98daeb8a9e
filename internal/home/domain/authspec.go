package domain

import (
	"fmt"

	"github.com/hearth-im/hearth/pkg/idx"
)

// RequirementKind enumerates the checks a route can demand of its caller.
type RequirementKind int

const (
	// RequireHostAdmin demands a local user with host-wide admin rights.
	RequireHostAdmin RequirementKind = iota
	// RequireServerAdmin demands the admin role in a given community server.
	RequireServerAdmin
	// RequireServerMember demands any membership in a given community server.
	RequireServerMember
	// RequireFederation demands an authenticated peer server.
	RequireFederation
)

func (k RequirementKind) String() string {
	switch k {
	case RequireHostAdmin:
		return "host_admin"
	case RequireServerAdmin:
		return "server_admin"
	case RequireServerMember:
		return "server_member"
	case RequireFederation:
		return "federation"
	default:
		return fmt.Sprintf("requirement(%d)", int(k))
	}
}

// Requirement is one authorization check. ServerID is set only for the
// per-community kinds.
type Requirement struct {
	Kind     RequirementKind
	ServerID idx.ID
}

// Requirement constructors, so route tables read as policy.

func HostAdmin() Requirement { return Requirement{Kind: RequireHostAdmin} }

func ServerAdmin(serverID idx.ID) Requirement {
	return Requirement{Kind: RequireServerAdmin, ServerID: serverID}
}

func ServerMember(serverID idx.ID) Requirement {
	return Requirement{Kind: RequireServerMember, ServerID: serverID}
}

func Federation() Requirement { return Requirement{Kind: RequireFederation} }

// AuthSpec is the full authorization policy of an operation: every
// requirement must hold (AND). An empty spec admits any authenticated
// principal.
type AuthSpec struct {
	Requirements []Requirement
}

// Require builds an AuthSpec from its requirements.
func Require(reqs ...Requirement) AuthSpec {
	return AuthSpec{Requirements: reqs}
}
