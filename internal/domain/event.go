package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType enumerates the kinds of events.
type EventType string

const (
	EventTypeConference EventType = "conference"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeWebinar    EventType = "webinar"
	EventTypeMeetup     EventType = "meetup"
)

// EventTypes lists every valid EventType.
var EventTypes = []EventType{EventTypeConference, EventTypeWorkshop, EventTypeWebinar, EventTypeMeetup}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a scheduled event at a location.
// swagger:model Event
type Event struct {
	ID                   string      `json:"id"`
	OrganizerID          string      `json:"organizer_id"`
	Title                string      `json:"title"`
	Type                 EventType   `json:"type"`
	LocationID           string      `json:"location_id"`
	StartsAt             time.Time   `json:"starts_at"`
	EndsAt               time.Time   `json:"ends_at"`
	Audience             AudienceSet `json:"audience_types"`
	Description          *string     `json:"description"`
	Capacity             *int        `json:"capacity"`
	IsFeatured           bool        `json:"is_featured"`
	RegistrationDeadline *time.Time  `json:"registration_deadline"`
	Requirements         *string     `json:"requirements"`
	Agenda               *string     `json:"agenda"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`

	// Hydrated on reads.
	Location           *Location  `json:"location,omitempty"`
	Organizer          *User      `json:"organizer,omitempty"`
	Speakers           []*Speaker `json:"speakers"`
	RegistrationsCount int        `json:"registrations_count"`
	// IsRegistered is only set when the viewer holds the audience role.
	IsRegistered *bool `json:"is_registered,omitempty"`
}

// AudienceMask is the stored bitmask form of the event's audience.
func (e *Event) AudienceMask() int {
	return e.Audience.Mask()
}

// MarshalJSON adds the audience_mask wire field next to the decoded audience_types.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	return json.Marshal(struct {
		event
		AudienceMask int `json:"audience_mask"`
	}{event: event(e), AudienceMask: e.Audience.Mask()})
}

// Overlaps reports whether e and other share a location and their time windows touch.
// Boundaries are inclusive, matching EventRepository.HasConflicts.
func (e *Event) Overlaps(other *Event) bool {
	if e.ID == other.ID || e.LocationID != other.LocationID {
		return false
	}
	within := func(t time.Time) bool { return !t.Before(e.StartsAt) && !t.After(e.EndsAt) }
	if within(other.StartsAt) || within(other.EndsAt) {
		return true
	}
	return !other.StartsAt.After(e.StartsAt) && !other.EndsAt.Before(e.EndsAt)
}

// EventInput holds the fields of a new event. OrganizerID is set by the service.
type EventInput struct {
	Title                string
	Type                 EventType
	LocationID           string
	StartsAt             time.Time
	EndsAt               time.Time
	Audience             *AudienceSet
	Description          *string
	Capacity             *int
	IsFeatured           bool
	RegistrationDeadline *time.Time
	Requirements         *string
	Agenda               *string
	// SpeakerIDs is attached after the event row exists. Nil means no speakers.
	SpeakerIDs []string
}

// EventPatch holds the fields of an update. Nil fields are left unchanged.
type EventPatch struct {
	Title                *string
	Type                 *EventType
	LocationID           *string
	StartsAt             *time.Time
	EndsAt               *time.Time
	Audience             *AudienceSet
	Description          *string
	Capacity             *int
	IsFeatured           *bool
	RegistrationDeadline *time.Time
	Requirements         *string
	Agenda               *string
	// SpeakerIDs replaces the whole speaker set when non-nil (an empty slice detaches all).
	SpeakerIDs *[]string
}

// IsEmpty reports whether the patch changes no event column.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Type == nil && p.LocationID == nil && p.StartsAt == nil &&
		p.EndsAt == nil && p.Audience == nil && p.Description == nil && p.Capacity == nil &&
		p.IsFeatured == nil && p.RegistrationDeadline == nil && p.Requirements == nil && p.Agenda == nil
}

// EventFilter narrows an event listing. Zero values disable a filter.
type EventFilter struct {
	Search     string
	Type       EventType
	LocationID string
	// DateFrom and DateTo bound the calendar date of starts_at, both inclusive.
	DateFrom *time.Time
	DateTo   *time.Time
	Upcoming bool
	Today    bool
	// OwnEvents restricts to events organized by the viewer; ignored for anonymous viewers.
	OwnEvents bool
	ExcludeID string
	// Limit returns at most Limit events without pagination when > 0.
	Limit int
}

// EventQuery is a resolved listing query handed to the repository.
type EventQuery struct {
	Filter      EventFilter
	OrganizerID string
	Now         time.Time
	// ViewerID enables the is_registered projection when non-empty.
	ViewerID string
}

// EventPage is one page of a paginated listing.
type EventPage struct {
	Events     []*Event
	Pagination *PageInfo
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	// GetByID loads the event with location, organizer and registration projections.
	GetByID(ctx context.Context, id, viewerID string) (*Event, error)
	List(ctx context.Context, q EventQuery, page PaginationParams) ([]*Event, error)
	Count(ctx context.Context, q EventQuery) (int, error)
	Update(ctx context.Context, id string, patch EventPatch) error
	Delete(ctx context.Context, id string) error
	// HasConflicts reports whether another event at the same location overlaps the window.
	HasConflicts(ctx context.Context, eventID, locationID string, startsAt, endsAt time.Time) (bool, error)
}

// EventService defines the business logic for events.
type EventService interface {
	ListEvents(ctx context.Context, viewer *Principal, filter EventFilter, page PaginationParams) (*EventPage, error)
	GetEvent(ctx context.Context, viewer *Principal, id string) (*Event, error)
	CreateEvent(ctx context.Context, caller *Principal, input EventInput) (*Event, error)
	UpdateEvent(ctx context.Context, caller *Principal, id string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, caller *Principal, id string) error
	CheckConflicts(ctx context.Context, caller *Principal, id string) (bool, error)
}

// Transactor runs fn inside a single database transaction carried by ctx.
// Repositories called with that ctx join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
