// Package domain holds the entities shared across the service, store and
// HTTP layers. Types here carry no behavior beyond simple accessors; all
// persistence and policy lives in the layers around them.
package domain

import (
	"time"

	"github.com/hearth-im/hearth/pkg/idx"
)

// User is an account registered on this home server.
type User struct {
	ID           idx.ID
	Username     string
	PasswordHash string

	// IsHostAdmin grants server-wide administrative rights, independent of
	// any per-community role.
	IsHostAdmin bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
