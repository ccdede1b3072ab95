package validation

import (
	"time"

	"eventmanager/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title                string    `json:"title" validate:"required,filled,max=255"`
	Description          *string   `json:"description" validate:"omitnil,max=5000"`
	Type                 string    `json:"type" validate:"required,event_type"`
	LocationID           string    `json:"location_id" validate:"required,filled"`
	StartsAt             *DateTime `json:"starts_at" swaggertype:"string" format:"date-time"`
	EndsAt               *DateTime `json:"ends_at" swaggertype:"string" format:"date-time"`
	Capacity             *int      `json:"capacity" validate:"omitnil,min=1,max=10000"`
	AudienceTypes        []string  `json:"audience_types" validate:"omitempty,dive,audience"`
	SpeakerIDs           []string  `json:"speaker_ids"`
	IsFeatured           *FlexBool `json:"is_featured" swaggertype:"boolean"`
	RegistrationDeadline *DateTime `json:"registration_deadline" swaggertype:"string" format:"date-time"`
	Requirements         *string   `json:"requirements" validate:"omitnil,max=1000"`
	Agenda               *string   `json:"agenda" validate:"omitnil,max=5000"`
}

// ToInput converts a validated request into service input.
func (r *CreateEventRequest) ToInput() domain.EventInput {
	in := domain.EventInput{
		Title:                r.Title,
		Type:                 domain.EventType(r.Type),
		LocationID:           r.LocationID,
		StartsAt:             timeOf(r.StartsAt),
		EndsAt:               timeOf(r.EndsAt),
		Description:          r.Description,
		Capacity:             r.Capacity,
		RegistrationDeadline: timePtr(r.RegistrationDeadline),
		Requirements:         r.Requirements,
		Agenda:               r.Agenda,
		SpeakerIDs:           r.SpeakerIDs,
	}
	if r.AudienceTypes != nil {
		set := domain.ParseAudienceSet(r.AudienceTypes)
		in.Audience = &set
	}
	if r.IsFeatured != nil {
		in.IsFeatured = bool(*r.IsFeatured)
	}
	return in
}

// UpdateEventRequest is the request body for PUT/PATCH /events/{eventID}. Absent or
// null fields are left unchanged; a speaker_ids list replaces the current speakers.
type UpdateEventRequest struct {
	Title                *string   `json:"title" validate:"omitnil,filled,max=255"`
	Description          *string   `json:"description" validate:"omitnil,max=5000"`
	Type                 *string   `json:"type" validate:"omitnil,filled,event_type"`
	LocationID           *string   `json:"location_id" validate:"omitnil,filled"`
	StartsAt             *DateTime `json:"starts_at" swaggertype:"string" format:"date-time"`
	EndsAt               *DateTime `json:"ends_at" swaggertype:"string" format:"date-time"`
	Capacity             *int      `json:"capacity" validate:"omitnil,min=1,max=10000"`
	AudienceTypes        []string  `json:"audience_types" validate:"omitempty,dive,audience"`
	SpeakerIDs           []string  `json:"speaker_ids"`
	IsFeatured           *FlexBool `json:"is_featured" swaggertype:"boolean"`
	RegistrationDeadline *DateTime `json:"registration_deadline" swaggertype:"string" format:"date-time"`
	Requirements         *string   `json:"requirements" validate:"omitnil,max=1000"`
	Agenda               *string   `json:"agenda" validate:"omitnil,max=5000"`
}

// ToPatch converts a validated request into an event patch.
func (r *UpdateEventRequest) ToPatch() domain.EventPatch {
	p := domain.EventPatch{
		Title:                r.Title,
		LocationID:           r.LocationID,
		StartsAt:             timePtr(r.StartsAt),
		EndsAt:               timePtr(r.EndsAt),
		Description:          r.Description,
		Capacity:             r.Capacity,
		RegistrationDeadline: timePtr(r.RegistrationDeadline),
		Requirements:         r.Requirements,
		Agenda:               r.Agenda,
	}
	if r.Type != nil {
		t := domain.EventType(*r.Type)
		p.Type = &t
	}
	if r.AudienceTypes != nil {
		set := domain.ParseAudienceSet(r.AudienceTypes)
		p.Audience = &set
	}
	if r.IsFeatured != nil {
		b := bool(*r.IsFeatured)
		p.IsFeatured = &b
	}
	if r.SpeakerIDs != nil {
		ids := r.SpeakerIDs
		p.SpeakerIDs = &ids
	}
	return p
}

func timeOf(d *DateTime) time.Time {
	if d == nil || !d.Valid {
		return time.Time{}
	}
	return d.Time
}

func timePtr(d *DateTime) *time.Time {
	if d == nil || !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}
