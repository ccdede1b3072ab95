package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"eventmanager/internal/domain"
)

type speakerRepository struct {
	DB *sql.DB
}

func NewSpeakerRepository(db *sql.DB) domain.SpeakerRepository {
	return &speakerRepository{DB: db}
}

func (r *speakerRepository) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	query := `SELECT id::text FROM speakers WHERE id = ANY($1::uuid[])`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, mapPQError(err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[strings.ToLower(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	missing := []string{}
	for _, id := range ids {
		if _, ok := found[strings.ToLower(id)]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type eventSpeakerRepository struct {
	DB *sql.DB
}

func NewEventSpeakerRepository(db *sql.DB) domain.EventSpeakerRepository {
	return &eventSpeakerRepository{DB: db}
}

func (r *eventSpeakerRepository) Attach(ctx context.Context, eventID string, speakerIDs []string) error {
	if len(speakerIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO event_speakers (event_id, speaker_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (event_id, speaker_id) DO NOTHING
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, eventID, pq.Array(speakerIDs))
	return mapPQError(err)
}

func (r *eventSpeakerRepository) Sync(ctx context.Context, eventID string, speakerIDs []string) error {
	if speakerIDs == nil {
		speakerIDs = []string{}
	}
	q := conn(ctx, r.DB)
	if _, err := q.ExecContext(ctx,
		`DELETE FROM event_speakers WHERE event_id = $1 AND NOT (speaker_id = ANY($2::uuid[]))`,
		eventID, pq.Array(speakerIDs),
	); err != nil {
		return mapPQError(err)
	}
	return r.Attach(ctx, eventID, speakerIDs)
}

func (r *eventSpeakerRepository) DetachAll(ctx context.Context, eventID string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM event_speakers WHERE event_id = $1`, eventID)
	return mapPQError(err)
}

func (r *eventSpeakerRepository) ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*domain.Speaker, error) {
	out := make(map[string][]*domain.Speaker, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT es.event_id, s.id, s.name
		FROM event_speakers es
		INNER JOIN speakers s ON s.id = es.speaker_id
		WHERE es.event_id = ANY($1::uuid[])
		ORDER BY s.name ASC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, mapPQError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID string
		s := &domain.Speaker{}
		if err := rows.Scan(&eventID, &s.ID, &s.Name); err != nil {
			return nil, err
		}
		out[eventID] = append(out[eventID], s)
	}
	return out, rows.Err()
}
