// Package ride holds the carpool ride record and the rules that every
// stored ride must satisfy.
package ride

import (
	"database/sql"
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Ride is a bookable trip published by a driver with a fixed seat count.
type Ride struct {
	ID            uuid.UUID `db:"id"`
	DriverID      uuid.UUID `db:"driver_id"`
	OriginID      uuid.UUID `db:"origin_id"`
	DestinationID uuid.UUID `db:"destination_id"`
	ScheduledAt   time.Time `db:"scheduled_at"`
	// Seats is the capacity set at creation. Only admins may change it later.
	Seats     int            `db:"seats"`
	ShareCode sql.NullString `db:"share_code"`
	Notes     string         `db:"notes"`
	// Version increments on every mutation and is the precondition for
	// conditional writes (see Store).
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`

	// Riders in join order. Loaded from ride_riders, never scanned directly.
	Riders []uuid.UUID `db:"-"`
}

// IsFull reports whether every seat is taken.
func (r Ride) IsFull() bool {
	return len(r.Riders) >= r.Seats
}

// HasRider reports whether id currently occupies a seat.
func (r Ride) HasRider(id uuid.UUID) bool {
	for _, rider := range r.Riders {
		if rider == id {
			return true
		}
	}
	return false
}

// Violation identifies a broken ride invariant.
type Violation int

const (
	Overbooked Violation = iota
	DuplicateRider
	DriverIsRider
)

func (v Violation) String() string {
	return [...]string{"overbooked", "duplicate_rider", "driver_is_rider"}[v]
}

func (v Violation) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// CheckInvariants returns every invariant the ride breaks. It is a pure
// function usable defensively at write time and directly by tests against
// fixtures that bypass validation (e.g. admin raw updates).
func CheckInvariants(r Ride) []Violation {
	var violations []Violation

	if len(r.Riders) > r.Seats {
		violations = append(violations, Overbooked)
	}

	seen := make(map[uuid.UUID]struct{}, len(r.Riders))
	for _, rider := range r.Riders {
		if _, dup := seen[rider]; dup {
			violations = append(violations, DuplicateRider)
			break
		}
		seen[rider] = struct{}{}
	}

	if r.HasRider(r.DriverID) {
		violations = append(violations, DriverIsRider)
	}

	return violations
}

// Share codes are human-typeable invitation tokens in the fixed shape
// XXXX-XXXX, drawn from A-Z0-9. The alphabet keeps visually ambiguous
// glyphs (0/O, 1/I) to stay compatible with codes already in circulation.
const shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var shareCodeRE = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// ErrMalformedCode is returned when an input cannot be normalized into the
// XXXX-XXXX shape.
var ErrMalformedCode = errors.New("malformed share code")

// ValidShareCode reports whether code is already in canonical form.
func ValidShareCode(code string) bool {
	return shareCodeRE.MatchString(code)
}

// NormalizeShareCode canonicalizes user input: uppercase, strip everything
// outside [A-Z0-9-], and insert the hyphen into a bare 8-character code.
// Users frequently transcribe codes without punctuation.
func NormalizeShareCode(raw string) (string, error) {
	upper := strings.ToUpper(raw)

	var b strings.Builder
	b.Grow(len(upper))
	for _, c := range upper {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteRune(c)
		}
	}
	code := b.String()

	if len(code) == 8 && !strings.Contains(code, "-") {
		code = code[:4] + "-" + code[4:]
	}

	if !ValidShareCode(code) {
		return "", ErrMalformedCode
	}
	return code, nil
}

// NewShareCode draws a random canonical share code from rng. Uniqueness is
// the caller's problem (see the booking engine's issue path).
func NewShareCode(rng *rand.Rand) string {
	buf := make([]byte, 0, 9)
	for i := 0; i < 8; i++ {
		if i == 4 {
			buf = append(buf, '-')
		}
		buf = append(buf, shareCodeAlphabet[rng.Intn(len(shareCodeAlphabet))])
	}
	return string(buf)
}
