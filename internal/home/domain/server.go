package domain

import (
	"time"

	"github.com/hearth-im/hearth/pkg/idx"
)

// Server is a community space hosted on this home server, with its own
// channels, members and admins.
type Server struct {
	ID      idx.ID
	Name    string
	OwnerID idx.ID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership roles within a community server.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Membership links a user to a community server with a role.
type Membership struct {
	ServerID idx.ID
	UserID   idx.ID
	Role     string

	CreatedAt time.Time
}

// IsAdmin reports whether the membership carries the admin role.
func (m Membership) IsAdmin() bool { return m.Role == RoleAdmin }

// Channel is a named conversation stream inside a community server.
type Channel struct {
	ID       idx.ID
	ServerID idx.ID
	Name     string
	Topic    string

	CreatedAt time.Time
}

// Message is a single post in a channel. Remote authors are identified by
// name and home domain; local authors by user ID with an empty domain.
type Message struct {
	ID           idx.ID
	ChannelID    idx.ID
	AuthorID     idx.ID
	AuthorName   string
	AuthorDomain string
	Body         string

	CreatedAt time.Time
}
