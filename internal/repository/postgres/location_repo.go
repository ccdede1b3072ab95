package postgres

import (
	"context"
	"database/sql"

	"eventmanager/internal/domain"
)

type locationRepository struct {
	DB *sql.DB
}

func NewLocationRepository(db *sql.DB) domain.LocationRepository {
	return &locationRepository{DB: db}
}

func (r *locationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1::uuid)`, id).Scan(&exists)
	if err != nil {
		return false, mapPQError(err)
	}
	return exists, nil
}
