// Package booking implements the seat-booking engine: it validates and
// applies seat claims, releases and removals against the ride store, and
// owns the capacity invariant under concurrent requests.
package booking

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/semanticallynull/carpool-backend/ride"
)

var (
	ErrSelfJoin      = errors.New("driver cannot join own ride")
	ErrAlreadyJoined = errors.New("already a rider on this ride")
	ErrRideFull      = errors.New("ride is full")
	ErrRideExpired   = errors.New("ride has already departed")
	ErrNotARider     = errors.New("not a rider on this ride")
	ErrNotAuthorized = errors.New("not authorized for this ride")
	ErrInvalidCode   = errors.New("invalid share code")
	ErrCodeExhausted = errors.New("could not generate a unique share code")
	ErrSamePlace     = errors.New("origin and destination must differ")
	ErrPastSchedule  = errors.New("ride must be scheduled in the future")
	ErrSeatCount     = errors.New("ride needs at least one seat")
)

const (
	// joinGraceBuffer lets riders join a ride that left the scheduled time
	// only just behind. Matches the window drivers are told to wait.
	joinGraceBuffer = 30 * time.Minute

	// createGraceBuffer tolerates small clock skew between client and
	// server on creation.
	createGraceBuffer = 5 * time.Minute

	// maxConflictRetries bounds re-validation after a lost conditional
	// write. Three lost races on one ride means the remaining capacity is
	// being fought over; callers get the capacity answer at that point.
	maxConflictRetries = 3

	// maxCodeAttempts bounds share-code collision retries. Tunable: at 36^8
	// codes collisions are plausible at scale but rare enough that a short
	// bound suffices.
	maxCodeAttempts = 10
)

// Engine applies booking mutations through conditional writes on the ride
// store. It is safe for concurrent use.
type Engine struct {
	rides ride.Store
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(rides ride.Store) *Engine {
	return &Engine{
		rides: rides,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}
