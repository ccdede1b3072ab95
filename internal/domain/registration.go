package domain

import (
	"context"
	"time"
)

// Registration is an attendee's registration for an event.
// swagger:model Registration
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Registrant is the contact of a registered attendee.
type Registrant struct {
	UserID string
	Name   string
	Email  string
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// ListRegistrants returns the attendees registered for the event.
	ListRegistrants(ctx context.Context, eventID string) ([]*Registrant, error)
	// DeleteByEventID removes every registration of the event and returns how many were removed.
	DeleteByEventID(ctx context.Context, eventID string) (int64, error)
}
