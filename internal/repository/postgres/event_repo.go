package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventmanager/internal/clock"
	"eventmanager/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `e.id, e.organizer_id, e.title, e.type, e.location_id, e.starts_at, e.ends_at, e.audience_mask,
		e.description, e.capacity, e.is_featured, e.registration_deadline, e.requirements, e.agenda,
		e.created_at, e.updated_at,
		l.id, l.name, u.id, u.name, u.email,
		(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id) AS registrations_count`

const eventJoins = `
		FROM events e
		LEFT JOIN locations l ON l.id = e.location_id
		LEFT JOIN users u ON u.id = e.organizer_id`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (organizer_id, title, type, location_id, starts_at, ends_at, audience_mask,
			description, capacity, is_featured, registration_deadline, requirements, agenda, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.OrganizerID, e.Title, string(e.Type), e.LocationID, e.StartsAt, e.EndsAt, e.Audience.Mask(),
		e.Description, e.Capacity, e.IsFeatured, e.RegistrationDeadline, e.Requirements, e.Agenda,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	return mapPQError(err)
}

func (r *eventRepository) GetByID(ctx context.Context, id, viewerID string) (*domain.Event, error) {
	b := &whereBuilder{}
	b.add("e.id = " + b.arg(id))
	query := fmt.Sprintf(`SELECT %s, %s %s %s`, eventColumns, registeredColumn(b, viewerID), eventJoins, b.where())
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPQError(err)
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, q domain.EventQuery, page domain.PaginationParams) ([]*domain.Event, error) {
	b := filterClause(q)
	query := fmt.Sprintf(`SELECT %s, %s %s %s
		ORDER BY e.starts_at ASC, e.id ASC`, eventColumns, registeredColumn(b, q.ViewerID), eventJoins, b.where())
	if q.Filter.Limit > 0 {
		query += " LIMIT " + b.arg(q.Filter.Limit)
	} else if page.PageSize > 0 {
		query += " LIMIT " + b.arg(page.PageSize) + " OFFSET " + b.arg(page.Offset())
	}
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, mapPQError(err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Count(ctx context.Context, q domain.EventQuery) (int, error) {
	b := filterClause(q)
	query := `SELECT COUNT(*) FROM events e ` + b.where()
	var total int
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, b.args...).Scan(&total); err != nil {
		return 0, mapPQError(err)
	}
	return total, nil
}

func (r *eventRepository) Update(ctx context.Context, id string, patch domain.EventPatch) error {
	setClauses := []string{"updated_at = NOW()"}
	b := &whereBuilder{}
	set := func(column string, value any) {
		setClauses = append(setClauses, column+" = "+b.arg(value))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Type != nil {
		set("type", string(*patch.Type))
	}
	if patch.LocationID != nil {
		set("location_id", *patch.LocationID)
	}
	if patch.StartsAt != nil {
		set("starts_at", *patch.StartsAt)
	}
	if patch.EndsAt != nil {
		set("ends_at", *patch.EndsAt)
	}
	if patch.Audience != nil {
		set("audience_mask", patch.Audience.Mask())
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Capacity != nil {
		set("capacity", *patch.Capacity)
	}
	if patch.IsFeatured != nil {
		set("is_featured", *patch.IsFeatured)
	}
	if patch.RegistrationDeadline != nil {
		set("registration_deadline", *patch.RegistrationDeadline)
	}
	if patch.Requirements != nil {
		set("requirements", *patch.Requirements)
	}
	if patch.Agenda != nil {
		set("agenda", *patch.Agenda)
	}
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = %s`, strings.Join(setClauses, ", "), b.arg(id))
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, b.args...)
	if err != nil {
		return mapPQError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id)
	if err != nil {
		return mapPQError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) HasConflicts(ctx context.Context, eventID, locationID string, startsAt, endsAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE location_id = $1
				AND id IS DISTINCT FROM $2
				AND (starts_at BETWEEN $3 AND $4
					OR ends_at BETWEEN $3 AND $4
					OR (starts_at <= $3 AND ends_at >= $4))
		)
	`
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, locationID, nullString(eventID), startsAt, endsAt).Scan(&exists)
	if err != nil {
		return false, mapPQError(err)
	}
	return exists, nil
}

// filterClause translates the listing filters into a WHERE clause.
func filterClause(q domain.EventQuery) *whereBuilder {
	f := q.Filter
	b := &whereBuilder{}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := b.arg("%" + escapeLike(s) + "%")
		b.add(fmt.Sprintf("(e.title ILIKE %s OR e.description ILIKE %s)", p, p))
	}
	if f.Type != "" {
		b.add("e.type = " + b.arg(string(f.Type)))
	}
	if f.LocationID != "" {
		b.add("e.location_id = " + b.arg(f.LocationID))
	}
	if f.DateFrom != nil {
		b.add("e.starts_at >= " + b.arg(clock.StartOfDay(*f.DateFrom)))
	}
	if f.DateTo != nil {
		b.add("e.starts_at < " + b.arg(clock.StartOfDay(*f.DateTo).AddDate(0, 0, 1)))
	}
	if f.Upcoming {
		b.add("e.starts_at > " + b.arg(q.Now))
	}
	if f.Today {
		day := clock.StartOfDay(q.Now)
		b.add(fmt.Sprintf("e.starts_at >= %s AND e.starts_at < %s", b.arg(day), b.arg(day.AddDate(0, 0, 1))))
	}
	if f.OwnEvents && q.OrganizerID != "" {
		b.add("e.organizer_id = " + b.arg(q.OrganizerID))
	}
	if f.ExcludeID != "" {
		b.add("e.id <> " + b.arg(f.ExcludeID))
	}
	return b
}

// registeredColumn projects whether viewerID holds a registration for each row.
func registeredColumn(b *whereBuilder, viewerID string) string {
	if viewerID == "" {
		return "NULL::boolean AS is_registered"
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM registrations rr WHERE rr.event_id = e.id AND rr.user_id = %s) AS is_registered", b.arg(viewerID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{Speakers: []*domain.Speaker{}}
	var (
		eventType    string
		mask         int
		desc         sql.NullString
		capacity     sql.NullInt64
		deadline     sql.NullTime
		requirements sql.NullString
		agenda       sql.NullString
		locID        sql.NullString
		locName      sql.NullString
		orgID        sql.NullString
		orgName      sql.NullString
		orgEmail     sql.NullString
		registered   sql.NullBool
	)
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Title, &eventType, &e.LocationID, &e.StartsAt, &e.EndsAt, &mask,
		&desc, &capacity, &e.IsFeatured, &deadline, &requirements, &agenda,
		&e.CreatedAt, &e.UpdatedAt,
		&locID, &locName, &orgID, &orgName, &orgEmail,
		&e.RegistrationsCount, &registered,
	)
	if err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	e.Audience = domain.AudienceSetFromMask(mask)
	if desc.Valid {
		e.Description = &desc.String
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	if deadline.Valid {
		e.RegistrationDeadline = &deadline.Time
	}
	if requirements.Valid {
		e.Requirements = &requirements.String
	}
	if agenda.Valid {
		e.Agenda = &agenda.String
	}
	if locID.Valid {
		e.Location = &domain.Location{ID: locID.String, Name: locName.String}
	}
	if orgID.Valid {
		e.Organizer = &domain.User{ID: orgID.String, Name: orgName.String, Email: orgEmail.String}
	}
	if registered.Valid {
		e.IsRegistered = &registered.Bool
	}
	return e, nil
}

// whereBuilder accumulates AND-ed predicates and their positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// arg registers v and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *whereBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
