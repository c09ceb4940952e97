package ride

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("ride not found")
	// ErrVersionConflict means a conditional write lost a race: the ride
	// changed after the caller read it. Callers re-fetch and retry.
	ErrVersionConflict = errors.New("ride version conflict")
	// ErrShareCodeTaken means another ride already owns the code.
	ErrShareCodeTaken = errors.New("share code already in use")
)

// Update carries the admin-editable fields of a ride. Nil fields are left
// untouched.
type Update struct {
	OriginID      *uuid.UUID
	DestinationID *uuid.UUID
	ScheduledAt   *time.Time
	Seats         *int
	Notes         *string
}

// Store is the persistent ride record. Every mutating operation that touches
// seats or the share code is conditional on the version the caller read, so
// two concurrent writers cannot both apply against the same observed state.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Ride, error)
	// GetByShareCode expects a canonical code (see NormalizeShareCode).
	GetByShareCode(ctx context.Context, code string) (Ride, error)
	List(ctx context.Context, limit int) ([]Ride, error)
	Create(ctx context.Context, r *Ride) error
	Update(ctx context.Context, id uuid.UUID, upd Update) (Ride, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// AppendRider seats riderID if the ride still has version. When
	// clearCode is set the share code is removed on the same write, so a
	// join that fills the last seat retires the code atomically.
	AppendRider(ctx context.Context, rideID, riderID uuid.UUID, version int64, clearCode bool) error
	// RemoveRider unseats riderID if the ride still has version. The share
	// code is left as-is even though removal frees a seat; drivers re-issue
	// explicitly.
	RemoveRider(ctx context.Context, rideID, riderID uuid.UUID, version int64) error
	// SetShareCode assigns code if the ride still has version and carries no
	// code yet. Returns ErrShareCodeTaken when the code belongs to another
	// ride (insert-if-absent, enforced by a unique index).
	SetShareCode(ctx context.Context, rideID uuid.UUID, code string, version int64) error
}
