package ride

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

// Repository is the Postgres-backed Store. Conditional writes run in a
// transaction that locks the ride row, re-checks the caller's version and
// applies all-or-nothing.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Ride, error) {
	var ride Ride
	err := r.db.GetContext(ctx, &ride, getRideQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}

	if err := r.loadRiders(ctx, &ride); err != nil {
		return Ride{}, err
	}
	return ride, nil
}

const getRideQuery = `SELECT * FROM rides WHERE id = $1`

func (r *Repository) GetByShareCode(ctx context.Context, code string) (Ride, error) {
	var ride Ride
	err := r.db.GetContext(ctx, &ride, getRideByShareCodeQuery, code)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}

	if err := r.loadRiders(ctx, &ride); err != nil {
		return Ride{}, err
	}
	return ride, nil
}

const getRideByShareCodeQuery = `SELECT * FROM rides WHERE share_code = $1`

func (r *Repository) List(ctx context.Context, limit int) ([]Ride, error) {
	var rides []Ride
	err := r.db.SelectContext(ctx, &rides, listRidesQuery, limit)
	if err != nil {
		return nil, err
	}

	for i := range rides {
		if err := r.loadRiders(ctx, &rides[i]); err != nil {
			return nil, err
		}
	}
	return rides, nil
}

const listRidesQuery = `SELECT * FROM rides ORDER BY scheduled_at DESC LIMIT $1`

func (r *Repository) loadRiders(ctx context.Context, ride *Ride) error {
	return r.db.SelectContext(ctx, &ride.Riders, loadRidersQuery, ride.ID)
}

const loadRidersQuery = `SELECT rider_id FROM ride_riders WHERE ride_id = $1 ORDER BY position ASC`

func (r *Repository) Create(ctx context.Context, ride *Ride) error {
	return r.db.GetContext(ctx, ride, createRideQuery,
		ride.ID, ride.DriverID, ride.OriginID, ride.DestinationID, ride.ScheduledAt, ride.Seats, ride.Notes)
}

const createRideQuery = `
INSERT INTO rides (id, driver_id, origin_id, destination_id, scheduled_at, seats, notes, version, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now())
RETURNING *
`

func (r *Repository) Update(ctx context.Context, id uuid.UUID, upd Update) (Ride, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Ride{}, err
	}
	defer tx.Rollback()

	var ride Ride
	err = tx.GetContext(ctx, &ride, lockRideQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}

	if upd.OriginID != nil {
		ride.OriginID = *upd.OriginID
	}
	if upd.DestinationID != nil {
		ride.DestinationID = *upd.DestinationID
	}
	if upd.ScheduledAt != nil {
		ride.ScheduledAt = *upd.ScheduledAt
	}
	if upd.Seats != nil {
		ride.Seats = *upd.Seats
	}
	if upd.Notes != nil {
		ride.Notes = *upd.Notes
	}

	err = tx.GetContext(ctx, &ride, updateRideQuery,
		ride.OriginID, ride.DestinationID, ride.ScheduledAt, ride.Seats, ride.Notes, id)
	if err != nil {
		return Ride{}, err
	}

	if err := tx.Commit(); err != nil {
		return Ride{}, err
	}

	if err := r.loadRiders(ctx, &ride); err != nil {
		return Ride{}, err
	}
	return ride, nil
}

const lockRideQuery = `SELECT * FROM rides WHERE id = $1 FOR UPDATE`

const updateRideQuery = `
UPDATE rides
SET origin_id = $1, destination_id = $2, scheduled_at = $3, seats = $4, notes = $5, version = version + 1
WHERE id = $6
RETURNING *
`

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteRideQuery, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteRideQuery = `DELETE FROM rides WHERE id = $1`

func (r *Repository) AppendRider(ctx context.Context, rideID, riderID uuid.UUID, version int64, clearCode bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockAndCheckVersion(ctx, tx, rideID, version); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, appendRiderQuery, rideID, riderID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, bumpRideQuery, rideID, clearCode)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const appendRiderQuery = `
INSERT INTO ride_riders (ride_id, rider_id, position, joined_at)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0), now()
FROM ride_riders WHERE ride_id = $1
`

const bumpRideQuery = `
UPDATE rides
SET version = version + 1,
    share_code = CASE WHEN $2 THEN NULL ELSE share_code END
WHERE id = $1
`

func (r *Repository) RemoveRider(ctx context.Context, rideID, riderID uuid.UUID, version int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockAndCheckVersion(ctx, tx, rideID, version); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, removeRiderQuery, rideID, riderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}

	// Removal frees a seat but does not restore a cleared share code.
	_, err = tx.ExecContext(ctx, bumpRideQuery, rideID, false)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const removeRiderQuery = `DELETE FROM ride_riders WHERE ride_id = $1 AND rider_id = $2`

func (r *Repository) SetShareCode(ctx context.Context, rideID uuid.UUID, code string, version int64) error {
	res, err := r.db.ExecContext(ctx, setShareCodeQuery, code, rideID, version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrShareCodeTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

const setShareCodeQuery = `
UPDATE rides
SET share_code = $1, version = version + 1
WHERE id = $2 AND version = $3 AND share_code IS NULL
`

func lockAndCheckVersion(ctx context.Context, tx *sqlx.Tx, rideID uuid.UUID, version int64) error {
	var current int64
	err := tx.GetContext(ctx, &current, lockRideVersionQuery, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if current != version {
		return ErrVersionConflict
	}
	return nil
}

const lockRideVersionQuery = `SELECT version FROM rides WHERE id = $1 FOR UPDATE`
