package apikey

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("api key not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByKey(ctx context.Context, key string) (Key, error) {
	var k Key
	err := r.db.GetContext(ctx, &k, getByKeyQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Key{}, ErrNotFound
	}
	return k, err
}

const getByKeyQuery = `SELECT * FROM api_keys WHERE key = $1`

// TouchLastUsed records that the key was just used. Callers fire-and-forget;
// a failure here never fails the request.
func (r *Repository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, touchLastUsedQuery, id)
	return err
}

const touchLastUsedQuery = `UPDATE api_keys SET last_used_at = now() WHERE id = $1`
