// Package apikey is the credential store behind bearer authentication.
package apikey

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Key is an opaque bearer credential bound to a user.
type Key struct {
	ID         uuid.UUID    `db:"id"`
	Key        string       `db:"key"`
	UserID     uuid.UUID    `db:"user_id"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	CreatedAt  time.Time    `db:"created_at"`
}
