package ride

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeStore is an in-memory Store for tests. It enforces the same version
// preconditions as the SQL repository, so lost-update races are observable:
// two callers that read the same version and both write will see exactly one
// success and one ErrVersionConflict.
type FakeStore struct {
	mu    sync.Mutex
	rides map[uuid.UUID]Ride
}

func NewFakeStore() *FakeStore {
	return &FakeStore{rides: make(map[uuid.UUID]Ride)}
}

// Seed inserts a ride bypassing validation, for test fixtures.
func (s *FakeStore) Seed(r Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Version == 0 {
		r.Version = 1
	}
	s.rides[r.ID] = cloneRide(r)
}

func (s *FakeStore) Get(_ context.Context, id uuid.UUID) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return Ride{}, ErrNotFound
	}
	return cloneRide(r), nil
}

func (s *FakeStore) GetByShareCode(_ context.Context, code string) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rides {
		if r.ShareCode.Valid && r.ShareCode.String == code {
			return cloneRide(r), nil
		}
	}
	return Ride{}, ErrNotFound
}

func (s *FakeStore) List(_ context.Context, limit int) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rides := make([]Ride, 0, len(s.rides))
	for _, r := range s.rides {
		rides = append(rides, cloneRide(r))
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].ScheduledAt.After(rides[j].ScheduledAt)
	})
	if limit > 0 && len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

func (s *FakeStore) Create(_ context.Context, r *Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Version = 1
	r.CreatedAt = time.Now()
	s.rides[r.ID] = cloneRide(*r)
	return nil
}

func (s *FakeStore) Update(_ context.Context, id uuid.UUID, upd Update) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return Ride{}, ErrNotFound
	}

	if upd.OriginID != nil {
		r.OriginID = *upd.OriginID
	}
	if upd.DestinationID != nil {
		r.DestinationID = *upd.DestinationID
	}
	if upd.ScheduledAt != nil {
		r.ScheduledAt = *upd.ScheduledAt
	}
	if upd.Seats != nil {
		r.Seats = *upd.Seats
	}
	if upd.Notes != nil {
		r.Notes = *upd.Notes
	}
	r.Version++
	s.rides[id] = r
	return cloneRide(r), nil
}

func (s *FakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[id]; !ok {
		return ErrNotFound
	}
	delete(s.rides, id)
	return nil
}

func (s *FakeStore) AppendRider(_ context.Context, rideID, riderID uuid.UUID, version int64, clearCode bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return ErrNotFound
	}
	if r.Version != version {
		return ErrVersionConflict
	}

	r.Riders = append(append([]uuid.UUID(nil), r.Riders...), riderID)
	if clearCode {
		r.ShareCode = sql.NullString{}
	}
	r.Version++
	s.rides[rideID] = r
	return nil
}

func (s *FakeStore) RemoveRider(_ context.Context, rideID, riderID uuid.UUID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return ErrNotFound
	}
	if r.Version != version {
		return ErrVersionConflict
	}

	riders := make([]uuid.UUID, 0, len(r.Riders))
	removed := false
	for _, id := range r.Riders {
		if id == riderID && !removed {
			removed = true
			continue
		}
		riders = append(riders, id)
	}
	if !removed {
		return ErrVersionConflict
	}

	r.Riders = riders
	r.Version++
	s.rides[rideID] = r
	return nil
}

func (s *FakeStore) SetShareCode(_ context.Context, rideID uuid.UUID, code string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.rides {
		if id != rideID && other.ShareCode.Valid && other.ShareCode.String == code {
			return ErrShareCodeTaken
		}
	}
	if r.Version != version || r.ShareCode.Valid {
		return ErrVersionConflict
	}

	r.ShareCode = sql.NullString{String: code, Valid: true}
	r.Version++
	s.rides[rideID] = r
	return nil
}

func cloneRide(r Ride) Ride {
	r.Riders = append([]uuid.UUID(nil), r.Riders...)
	return r
}
