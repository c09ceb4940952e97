package place

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("place not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPlaces(ctx context.Context) ([]Place, error) {
	var places []Place
	err := r.db.SelectContext(ctx, &places, getPlacesQuery)
	return places, err
}

const getPlacesQuery = `SELECT * FROM places ORDER BY name ASC`

func (r *Repository) GetPlace(ctx context.Context, id uuid.UUID) (Place, error) {
	var p Place
	err := r.db.GetContext(ctx, &p, getPlaceQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Place{}, ErrNotFound
	}
	return p, err
}

const getPlaceQuery = `SELECT * FROM places WHERE id = $1`
