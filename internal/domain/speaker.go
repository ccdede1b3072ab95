package domain

import "context"

// Speaker is a person presenting at events.
// swagger:model Speaker
type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpeakerRepository defines lookups on speakers.
type SpeakerRepository interface {
	// MissingIDs returns the ids among ids that do not exist, preserving input order.
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// EventSpeakerRepository manages the event_speakers association.
type EventSpeakerRepository interface {
	Attach(ctx context.Context, eventID string, speakerIDs []string) error
	// Sync makes speakerIDs the exact speaker set of the event.
	Sync(ctx context.Context, eventID string, speakerIDs []string) error
	DetachAll(ctx context.Context, eventID string) error
	// ListByEventIDs returns the speakers of each event keyed by event ID.
	ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*Speaker, error)
}
