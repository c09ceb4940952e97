// Package place holds the pickup and drop-off points rides reference.
package place

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Type int

const (
	Campus Type = iota
	Residential
	Landmark
)

// Place is a named pickup or drop-off point rides reference as origin and
// destination.
type Place struct {
	ID       uuid.UUID
	Name     string
	Address  string
	Location pgtype.Point
	Type     Type
}

func (t Type) String() string {
	return [...]string{"campus", "residential", "landmark"}[t]
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "campus":
		*t = Campus
	case "residential":
		*t = Residential
	case "landmark":
		*t = Landmark
	default:
		return fmt.Errorf("unknown place type %q", s)
	}
	return nil
}

func (t *Type) Scan(i any) error {
	switch v := i.(type) {
	case string:
		switch v {
		case "campus":
			*t = Campus
			return nil
		case "residential":
			*t = Residential
			return nil
		case "landmark":
			*t = Landmark
			return nil
		}
	}
	panic("invalid scan type")
}
