package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/carpool-backend/ride"
	"github.com/semanticallynull/carpool-backend/user"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestEngine(store ride.Store) *Engine {
	e := NewEngine(store)
	e.now = func() time.Time { return testNow }
	return e
}

func seedRide(store *ride.FakeStore, driver uuid.UUID, seats int, riders ...uuid.UUID) ride.Ride {
	r := ride.Ride{
		ID:            uuid.New(),
		DriverID:      driver,
		OriginID:      uuid.New(),
		DestinationID: uuid.New(),
		ScheduledAt:   testNow.Add(2 * time.Hour),
		Seats:         seats,
		Riders:        riders,
	}
	store.Seed(r)
	return r
}

func TestCreate(t *testing.T) {
	driver := user.User{ID: uuid.New(), MayDrive: true}
	origin, dest := uuid.New(), uuid.New()
	valid := CreateParams{
		OriginID:      origin,
		DestinationID: dest,
		ScheduledAt:   testNow.Add(time.Hour),
		Seats:         3,
	}

	tests := []struct {
		name    string
		caller  user.User
		params  CreateParams
		wantErr error
	}{
		{name: "driver creates ride", caller: driver, params: valid},
		{
			name:    "non-driver rejected",
			caller:  user.User{ID: uuid.New()},
			params:  valid,
			wantErr: ErrNotAuthorized,
		},
		{
			name:    "same origin and destination",
			caller:  driver,
			params:  CreateParams{OriginID: origin, DestinationID: origin, ScheduledAt: testNow.Add(time.Hour), Seats: 3},
			wantErr: ErrSamePlace,
		},
		{
			name:    "scheduled in the past",
			caller:  driver,
			params:  CreateParams{OriginID: origin, DestinationID: dest, ScheduledAt: testNow.Add(-time.Hour), Seats: 3},
			wantErr: ErrPastSchedule,
		},
		{
			name:    "zero seats",
			caller:  driver,
			params:  CreateParams{OriginID: origin, DestinationID: dest, ScheduledAt: testNow.Add(time.Hour), Seats: 0},
			wantErr: ErrSeatCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := ride.NewFakeStore()
			e := newTestEngine(store)

			id, err := e.Create(context.Background(), tt.caller, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := store.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.caller.ID, got.DriverID)
			assert.Empty(t, got.Riders)
		})
	}
}

func TestCreateToleratesClockSkew(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)
	driver := user.User{ID: uuid.New(), MayDrive: true}

	_, err := e.Create(context.Background(), driver, CreateParams{
		OriginID:      uuid.New(),
		DestinationID: uuid.New(),
		ScheduledAt:   testNow.Add(-2 * time.Minute),
		Seats:         1,
	})
	require.NoError(t, err)
}

func TestJoinBySeat(t *testing.T) {
	driver := uuid.New()
	seated := uuid.New()

	tests := []struct {
		name    string
		ride    func(store *ride.FakeStore) ride.Ride
		caller  uuid.UUID
		wantErr error
	}{
		{
			name:   "open seat",
			ride:   func(s *ride.FakeStore) ride.Ride { return seedRide(s, driver, 2) },
			caller: uuid.New(),
		},
		{
			name:    "driver joining own ride",
			ride:    func(s *ride.FakeStore) ride.Ride { return seedRide(s, driver, 2) },
			caller:  driver,
			wantErr: ErrSelfJoin,
		},
		{
			name:    "already seated",
			ride:    func(s *ride.FakeStore) ride.Ride { return seedRide(s, driver, 2, seated) },
			caller:  seated,
			wantErr: ErrAlreadyJoined,
		},
		{
			name:    "ride full",
			ride:    func(s *ride.FakeStore) ride.Ride { return seedRide(s, driver, 1, seated) },
			caller:  uuid.New(),
			wantErr: ErrRideFull,
		},
		{
			name: "ride departed beyond the grace window",
			ride: func(s *ride.FakeStore) ride.Ride {
				r := seedRide(s, driver, 2)
				r.ScheduledAt = testNow.Add(-31 * time.Minute)
				s.Seed(r)
				return r
			},
			caller:  uuid.New(),
			wantErr: ErrRideExpired,
		},
		{
			name: "ride departed within the grace window",
			ride: func(s *ride.FakeStore) ride.Ride {
				r := seedRide(s, driver, 2)
				r.ScheduledAt = testNow.Add(-29 * time.Minute)
				s.Seed(r)
				return r
			},
			caller: uuid.New(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := ride.NewFakeStore()
			e := newTestEngine(store)
			r := tt.ride(store)

			err := e.JoinBySeat(context.Background(), r.ID, tt.caller)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := store.Get(context.Background(), r.ID)
			require.NoError(t, err)
			assert.True(t, got.HasRider(tt.caller))
		})
	}
}

func TestJoinBySeatUnknownRide(t *testing.T) {
	e := newTestEngine(ride.NewFakeStore())
	err := e.JoinBySeat(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ride.ErrNotFound)
}

// TestJoinLastSeatRace races riders for a single seat. Exactly one of them
// may win, no matter how the conditional writes interleave.
func TestJoinLastSeatRace(t *testing.T) {
	const riders = 16

	store := ride.NewFakeStore()
	e := newTestEngine(store)
	r := seedRide(store, uuid.New(), 1)

	var wg sync.WaitGroup
	errs := make([]error, riders)
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.JoinBySeat(context.Background(), r.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrRideFull)
	}
	assert.Equal(t, 1, wins, "exactly one rider should claim the last seat")

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Riders, 1)
	assert.Empty(t, ride.CheckInvariants(got))
}

func TestJoinFillingLastSeatRetiresShareCode(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)

	r := seedRide(store, uuid.New(), 2, uuid.New())
	require.NoError(t, store.SetShareCode(context.Background(), r.ID, "ABCD-1234", 1))

	require.NoError(t, e.JoinBySeat(context.Background(), r.ID, uuid.New()))

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFull())
	assert.False(t, got.ShareCode.Valid, "filling the ride should retire the share code")
}

func TestJoinByCode(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)

	r := seedRide(store, uuid.New(), 2)
	require.NoError(t, store.SetShareCode(context.Background(), r.ID, "ABCD-1234", 1))

	// Lowercase and unhyphenated input resolves to the same ride.
	gotID, err := e.JoinByCode(context.Background(), "abcd1234", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, r.ID, gotID)

	_, err = e.JoinByCode(context.Background(), "ZZZZ-9999", uuid.New())
	assert.ErrorIs(t, err, ErrInvalidCode)

	// Too few usable characters to ever form a code.
	_, err = e.JoinByCode(context.Background(), "short", uuid.New())
	assert.ErrorIs(t, err, ride.ErrMalformedCode)

	// Punctuation is stripped before validation, so this one is a legal
	// transcription of NOTA-CODE and misses the lookup instead.
	_, err = e.JoinByCode(context.Background(), "not a code!", uuid.New())
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestJoinByCodeFillingLastSeatRetiresCode(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)

	r := seedRide(store, uuid.New(), 1)
	require.NoError(t, store.SetShareCode(context.Background(), r.ID, "ABCD-1234", 1))

	_, err := e.JoinByCode(context.Background(), "ABCD-1234", uuid.New())
	require.NoError(t, err)

	// The code died with the last seat; it cannot admit anyone else.
	_, err = e.JoinByCode(context.Background(), "ABCD-1234", uuid.New())
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLeave(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)

	rider := uuid.New()
	r := seedRide(store, uuid.New(), 2, rider)

	require.NoError(t, e.Leave(context.Background(), r.ID, rider))

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, got.HasRider(rider))

	// Leaving twice is an error, not a silent no-op.
	assert.ErrorIs(t, e.Leave(context.Background(), r.ID, rider), ErrNotARider)
}

func TestRemoveRider(t *testing.T) {
	driverID := uuid.New()
	target := uuid.New()

	tests := []struct {
		name    string
		actor   user.User
		wantErr error
	}{
		{name: "driver removes rider", actor: user.User{ID: driverID, MayDrive: true}},
		{name: "admin removes rider", actor: user.User{ID: uuid.New(), IsAdmin: true}},
		{
			name:    "stranger rejected",
			actor:   user.User{ID: uuid.New()},
			wantErr: ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := ride.NewFakeStore()
			e := newTestEngine(store)
			r := seedRide(store, driverID, 2, target)

			err := e.RemoveRider(context.Background(), r.ID, tt.actor, target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := store.Get(context.Background(), r.ID)
			require.NoError(t, err)
			assert.False(t, got.HasRider(target))
		})
	}
}

func TestRemoveRiderNotSeated(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)
	driver := user.User{ID: uuid.New(), MayDrive: true}
	r := seedRide(store, driver.ID, 2)

	err := e.RemoveRider(context.Background(), r.ID, driver, uuid.New())
	assert.ErrorIs(t, err, ErrNotARider)
}

// A removal that frees a seat does not resurrect a retired share code; the
// driver asks for a new one explicitly.
func TestRemoveRiderDoesNotRestoreShareCode(t *testing.T) {
	store := ride.NewFakeStore()
	e := newTestEngine(store)

	driver := user.User{ID: uuid.New(), MayDrive: true}
	r := seedRide(store, driver.ID, 1)
	require.NoError(t, store.SetShareCode(context.Background(), r.ID, "ABCD-1234", 1))

	rider := uuid.New()
	require.NoError(t, e.JoinBySeat(context.Background(), r.ID, rider))
	require.NoError(t, e.RemoveRider(context.Background(), r.ID, driver, rider))

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, got.ShareCode.Valid)
}
