package postgres

import (
	"context"
	"database/sql"

	"eventmanager/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) ListRegistrants(ctx context.Context, eventID string) ([]*domain.Registrant, error) {
	query := `
		SELECT u.id, u.name, u.email
		FROM registrations r
		INNER JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, mapPQError(err)
	}
	defer rows.Close()

	registrants := []*domain.Registrant{}
	for rows.Next() {
		reg := &domain.Registrant{}
		if err := rows.Scan(&reg.UserID, &reg.Name, &reg.Email); err != nil {
			return nil, err
		}
		registrants = append(registrants, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registrants, nil
}

func (r *registrationRepository) DeleteByEventID(ctx context.Context, eventID string) (int64, error) {
	result, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM registrations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, mapPQError(err)
	}
	return result.RowsAffected()
}
