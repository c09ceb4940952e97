package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/ride"
	"github.com/semanticallynull/carpool-backend/user"
)

// CreateParams carries the driver-supplied fields of a new ride.
type CreateParams struct {
	OriginID      uuid.UUID
	DestinationID uuid.UUID
	ScheduledAt   time.Time
	Seats         int
	Notes         string
}

// Create publishes a ride with an empty rider list. The caller must hold the
// may-drive capability.
func (e *Engine) Create(ctx context.Context, driver user.User, p CreateParams) (uuid.UUID, error) {
	if !driver.MayDrive {
		return uuid.Nil, ErrNotAuthorized
	}
	if p.OriginID == p.DestinationID {
		return uuid.Nil, ErrSamePlace
	}
	if p.ScheduledAt.Before(e.now().Add(-createGraceBuffer)) {
		return uuid.Nil, ErrPastSchedule
	}
	if p.Seats < 1 {
		return uuid.Nil, ErrSeatCount
	}

	r := &ride.Ride{
		ID:            uuid.New(),
		DriverID:      driver.ID,
		OriginID:      p.OriginID,
		DestinationID: p.DestinationID,
		ScheduledAt:   p.ScheduledAt,
		Seats:         p.Seats,
		Notes:         p.Notes,
	}
	if err := e.rides.Create(ctx, r); err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

// JoinBySeat seats the caller on the ride. The append is conditional on the
// state the validation saw, so two callers racing for the last seat cannot
// both get in: the loser re-validates and is told the ride is full.
func (e *Engine) JoinBySeat(ctx context.Context, rideID, caller uuid.UUID) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		r, err := e.rides.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if err := e.validateJoin(r, caller); err != nil {
			return err
		}

		clearCode := r.ShareCode.Valid && len(r.Riders)+1 == r.Seats
		err = e.rides.AppendRider(ctx, rideID, caller, r.Version, clearCode)
		if errors.Is(err, ride.ErrVersionConflict) {
			continue
		}
		return err
	}
	// Every retry lost its race. The remaining capacity is contended; report
	// it as exhausted rather than bouncing the caller indefinitely.
	return ErrRideFull
}

// JoinByCode resolves a share code to a ride and seats the caller. When the
// join fills the last seat the code is retired on the same write.
func (e *Engine) JoinByCode(ctx context.Context, rawCode string, caller uuid.UUID) (uuid.UUID, error) {
	code, err := ride.NormalizeShareCode(rawCode)
	if err != nil {
		return uuid.Nil, err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		r, err := e.rides.GetByShareCode(ctx, code)
		if errors.Is(err, ride.ErrNotFound) {
			return uuid.Nil, ErrInvalidCode
		}
		if err != nil {
			return uuid.Nil, err
		}
		if err := e.validateJoin(r, caller); err != nil {
			return uuid.Nil, err
		}

		clearCode := len(r.Riders)+1 == r.Seats
		err = e.rides.AppendRider(ctx, r.ID, caller, r.Version, clearCode)
		if errors.Is(err, ride.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return uuid.Nil, err
		}
		return r.ID, nil
	}
	return uuid.Nil, ErrRideFull
}

// Leave removes the caller from the ride. A second Leave for the same caller
// reports ErrNotARider, never a silent no-op.
func (e *Engine) Leave(ctx context.Context, rideID, caller uuid.UUID) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		r, err := e.rides.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if !r.HasRider(caller) {
			return ErrNotARider
		}

		err = e.rides.RemoveRider(ctx, rideID, caller, r.Version)
		if errors.Is(err, ride.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ride.ErrVersionConflict
}

// RemoveRider unseats target on behalf of the ride's driver or an admin.
// A share code cleared earlier is not restored even though removal frees a
// seat; the driver re-issues explicitly.
func (e *Engine) RemoveRider(ctx context.Context, rideID uuid.UUID, actor user.User, target uuid.UUID) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		r, err := e.rides.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if r.DriverID != actor.ID && !actor.IsAdmin {
			return ErrNotAuthorized
		}
		if !r.HasRider(target) {
			return ErrNotARider
		}

		err = e.rides.RemoveRider(ctx, rideID, target, r.Version)
		if errors.Is(err, ride.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ride.ErrVersionConflict
}

func (e *Engine) validateJoin(r ride.Ride, caller uuid.UUID) error {
	if r.DriverID == caller {
		return ErrSelfJoin
	}
	if r.HasRider(caller) {
		return ErrAlreadyJoined
	}
	if r.IsFull() {
		return ErrRideFull
	}
	if r.ScheduledAt.Before(e.now().Add(-joinGraceBuffer)) {
		return ErrRideExpired
	}
	return nil
}
