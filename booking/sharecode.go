package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/ride"
	"github.com/semanticallynull/carpool-backend/user"
)

// IssueOrFetchShareCode returns the ride's share code, generating one when
// none exists. Only the ride's driver may call it. A ride that already has a
// code gets the same code back; a working code is never regenerated.
//
// Assignment is insert-if-absent: the store rejects a code another ride
// already owns, and generation retries up to maxCodeAttempts before giving
// up with ErrCodeExhausted. A failed issuance leaves the ride untouched.
func (e *Engine) IssueOrFetchShareCode(ctx context.Context, rideID uuid.UUID, caller user.User) (string, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		r, err := e.rides.Get(ctx, rideID)
		if err != nil {
			return "", err
		}
		if r.DriverID != caller.ID {
			return "", ErrNotAuthorized
		}
		if r.ShareCode.Valid {
			return r.ShareCode.String, nil
		}
		if r.IsFull() {
			return "", ErrRideFull
		}

		code, err := e.assignFreshCode(ctx, rideID, r.Version)
		if errors.Is(err, ride.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", ride.ErrVersionConflict
}

func (e *Engine) assignFreshCode(ctx context.Context, rideID uuid.UUID, version int64) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		e.rngMu.Lock()
		code := ride.NewShareCode(e.rng)
		e.rngMu.Unlock()

		err := e.rides.SetShareCode(ctx, rideID, code, version)
		if errors.Is(err, ride.ErrShareCodeTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", ErrCodeExhausted
}
