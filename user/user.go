package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User is a verified identity. Authentication itself happens upstream; this
// record only carries the capabilities the booking paths care about.
type User struct {
	ID       uuid.UUID      `db:"id"`
	Username string         `db:"username"`
	Email    sql.NullString `db:"email"`
	// MayDrive is the capability gate for publishing rides.
	MayDrive  bool      `db:"may_drive"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}
